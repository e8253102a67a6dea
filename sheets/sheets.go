package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/nijaru/yt-adwatch/config"
	apperrors "github.com/nijaru/yt-adwatch/errors"
)

// Worksheet is one tab of a spreadsheet that rows can be written into.
type Worksheet interface {
	// RowCount reports how many rows are in use, up to the last non-empty one.
	RowCount(ctx context.Context) (int, error)
	// Write stores rows starting at the 1-based startRow.
	Write(ctx context.Context, startRow int, rows [][]interface{}) error
}

type Config struct {
	CredentialsJSON  string
	SpreadsheetID    string
	WorksheetName    string
	Scopes           []string
	ValueInputOption string
	// Endpoint overrides the API base URL and disables authentication.
	Endpoint string
}

func ConfigFrom(cfg config.SheetsConfig) Config {
	return Config{
		CredentialsJSON:  cfg.CredentialsJSON,
		SpreadsheetID:    cfg.SpreadsheetID,
		WorksheetName:    cfg.WorksheetName,
		Scopes:           cfg.Scopes,
		ValueInputOption: cfg.ValueInputOption,
	}
}

type apiWorksheet struct {
	service          *sheetsapi.Service
	spreadsheetID    string
	name             string
	valueInputOption string
}

// Connect authenticates with a service account and binds to one worksheet.
func Connect(ctx context.Context, cfg Config) (Worksheet, error) {
	const op = "sheets.Connect"

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else {
		creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.CredentialsJSON), cfg.Scopes...)
		if err != nil {
			return nil, apperrors.Sheet(op, err, "invalid service account credentials")
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.Sheet(op, err, "failed to create sheets service")
	}

	ws := &apiWorksheet{
		service:          service,
		spreadsheetID:    cfg.SpreadsheetID,
		name:             cfg.WorksheetName,
		valueInputOption: cfg.ValueInputOption,
	}
	if ws.valueInputOption == "" {
		ws.valueInputOption = config.ValueInputUserEntered
	}

	// Fails fast on a wrong spreadsheet ID or worksheet name.
	if _, err := ws.RowCount(ctx); err != nil {
		return nil, apperrors.Sheet(op, err, "failed to open worksheet "+cfg.WorksheetName)
	}

	logrus.WithFields(logrus.Fields{
		"spreadsheet_id": cfg.SpreadsheetID,
		"worksheet":      cfg.WorksheetName,
	}).Info("Connected to worksheet")

	return ws, nil
}

// a1 quotes the worksheet name for use in an A1 range.
func (w *apiWorksheet) a1(cell string) string {
	name := "'" + strings.ReplaceAll(w.name, "'", "''") + "'"
	if cell == "" {
		return name
	}
	return name + "!" + cell
}

func (w *apiWorksheet) RowCount(ctx context.Context) (int, error) {
	resp, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, w.a1("")).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	return len(resp.Values), nil
}

func (w *apiWorksheet) Write(ctx context.Context, startRow int, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	if err := w.ensureRows(ctx, startRow-1+len(rows)); err != nil {
		return err
	}
	_, err := w.service.Spreadsheets.Values.Update(
		w.spreadsheetID,
		w.a1(fmt.Sprintf("A%d", startRow)),
		&sheetsapi.ValueRange{Values: rows},
	).ValueInputOption(w.valueInputOption).Context(ctx).Do()
	return err
}

// ensureRows grows the worksheet grid to at least needed rows. values.update
// rejects ranges below the grid, and a new sheet only has 1000 rows.
func (w *apiWorksheet) ensureRows(ctx context.Context, needed int) error {
	ss, err := w.service.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to read worksheet properties")
	}

	var props *sheetsapi.SheetProperties
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == w.name {
			props = sh.Properties
			break
		}
	}
	if props == nil {
		return errors.Errorf("worksheet %q not found", w.name)
	}

	var have int64
	if props.GridProperties != nil {
		have = props.GridProperties.RowCount
	}
	if int64(needed) <= have {
		return nil
	}

	_, err = w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AppendDimension: &sheetsapi.AppendDimensionRequest{
				SheetId:   props.SheetId,
				Dimension: "ROWS",
				Length:    int64(needed) - have,
				// The first worksheet's ID is 0, which omitempty would drop.
				ForceSendFields: []string{"SheetId"},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to append rows to worksheet grid")
	}

	logrus.WithFields(logrus.Fields{
		"worksheet": w.name,
		"from_rows": have,
		"to_rows":   needed,
	}).Info("Expanded worksheet grid")
	return nil
}

// Upload writes rows directly below the existing content. The header is
// written first only when the worksheet is empty. Rows are never
// deduplicated, so running twice appends twice.
func Upload(ctx context.Context, ws Worksheet, header []interface{}, rows [][]interface{}) (int, error) {
	const op = "sheets.Upload"

	count, err := ws.RowCount(ctx)
	if err != nil {
		return 0, apperrors.Sheet(op, err, "failed to read row count")
	}

	values := rows
	if count == 0 {
		values = make([][]interface{}, 0, len(rows)+1)
		values = append(values, header)
		values = append(values, rows...)
	}

	if err := ws.Write(ctx, count+1, values); err != nil {
		return 0, apperrors.Sheet(op, err, "failed to write rows")
	}

	logrus.WithFields(logrus.Fields{
		"start_row": count + 1,
		"rows":      len(rows),
		"header":    count == 0,
	}).Info("Uploaded rows to worksheet")

	return len(rows), nil
}
