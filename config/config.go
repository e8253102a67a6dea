package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-adwatch/errors"
)

const (
	BackendScript = "script"
	BackendOpenAI = "openai"

	ValueInputRaw         = "RAW"
	ValueInputUserEntered = "USER_ENTERED"
)

var (
	DefaultAdKeywords = []string{
		"할인", "이벤트", "특가", "무료검진", "보험", "비급여", "실손",
		"상담", "문의", "확실", "보장", "예약", "저렴", "무료", "혜택",
	}

	DefaultRiskKeywords = []string{
		"줄기세포", "무릎줄기세포주사", "여유증", "도수치료", "비급여주사",
		"맘모톰", "발달지연", "요양한방병원", "무릎관절증", "하지정맥류",
		"갑상선결절", "액취증",
	}

	DefaultSheetScopes = []string{
		"https://www.googleapis.com/auth/spreadsheets",
		"https://www.googleapis.com/auth/drive",
	}

	Backends    = []string{BackendScript, BackendOpenAI}
	ValueInputs = []string{ValueInputRaw, ValueInputUserEntered}
)

// Correction is one find/replace pair applied to transcripts, in order.
type Correction struct {
	Wrong   string
	Correct string
}

var DefaultCorrections = []Correction{
	{Wrong: "주기세포", Correct: "줄기세포"},
	{Wrong: "도수치료법", Correct: "도수치료"},
}

type Config struct {
	YouTube      YouTubeConfig
	Sheets       SheetsConfig
	Keywords     KeywordConfig
	STT          STTConfig
	Download     DownloadConfig
	Archive      ArchiveConfig
	DBPath       string
	LogDir       string
	LogLevel     string
	LogFormat    string
	LookbackDays int
}

type YouTubeConfig struct {
	APIKey            string
	MaxResults        int64
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration
}

type SheetsConfig struct {
	CredentialsJSON  string
	SpreadsheetID    string
	WorksheetName    string
	Scopes           []string
	ValueInputOption string
}

type KeywordConfig struct {
	Ad          []string
	Risk        []string
	Corrections []Correction
}

type STTConfig struct {
	Backend      string
	Model        string
	Language     string
	Device       string
	ComputeType  string
	UVPath       string
	ScriptPath   string
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIURL    string
	Timeout      time.Duration
}

type DownloadConfig struct {
	YtDlpPath    string
	CookiesFile  string
	AudioFormat  string
	AudioQuality string
	TempDir      string
	Retries      int
}

type ArchiveConfig struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func Load() (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	cfg := &Config{
		YouTube: YouTubeConfig{
			APIKey:            GetEnv("YOUTUBE_API_KEY", ""),
			MaxResults:        int64(getEnvAsInt("SEARCH_MAX_RESULTS", 20)),
			RequestsPerSecond: getEnvAsFloat("YOUTUBE_RPS", 5),
			Burst:             getEnvAsInt("YOUTUBE_BURST", 5),
			HTTPTimeout:       getEnvAsDuration("YOUTUBE_HTTP_TIMEOUT", 30*time.Second),
		},
		Sheets: SheetsConfig{
			CredentialsJSON:  GetEnv("GSHEETS_KEY", ""),
			SpreadsheetID:    GetEnv("SPREADSHEET_ID", "11N-GVX670-a1-pwsA7Qs0o9HwqBgiJOHMgJ7Me-IKjs"),
			WorksheetName:    GetEnv("WORKSHEET_NAME", "STT변환결과"),
			Scopes:           getEnvAsStringSlice("SHEETS_SCOPES", DefaultSheetScopes),
			ValueInputOption: GetEnv("SHEETS_VALUE_INPUT", ValueInputUserEntered),
		},
		Keywords: KeywordConfig{
			Ad:          getEnvAsStringSlice("AD_KEYWORDS", DefaultAdKeywords),
			Risk:        getEnvAsStringSlice("RISK_KEYWORDS", DefaultRiskKeywords),
			Corrections: getEnvAsCorrections("TRANSCRIPT_CORRECTIONS", DefaultCorrections),
		},
		STT: STTConfig{
			Backend:      GetEnv("STT_BACKEND", BackendScript),
			Model:        GetEnv("WHISPER_MODEL", "base"),
			Language:     GetEnv("STT_LANGUAGE", "ko"),
			Device:       GetEnv("WHISPER_DEVICE", "cpu"),
			ComputeType:  GetEnv("WHISPER_COMPUTE_TYPE", "int8"),
			UVPath:       GetEnv("UV_PATH", "uv"),
			ScriptPath:   GetEnv("STT_SCRIPT", "scripts/transcribe.py"),
			OpenAIAPIKey: GetEnv("OPENAI_API_KEY", ""),
			OpenAIModel:  GetEnv("OPENAI_STT_MODEL", "whisper-1"),
			OpenAIURL:    GetEnv("OPENAI_BASE_URL", ""),
			Timeout:      getEnvAsDuration("TRANSCRIBE_TIMEOUT", 20*time.Minute),
		},
		Download: DownloadConfig{
			YtDlpPath:    GetEnv("YTDLP_PATH", "yt-dlp"),
			CookiesFile:  GetEnv("COOKIES_FILE", "cookies.txt"),
			AudioFormat:  GetEnv("AUDIO_FORMAT", "mp3"),
			AudioQuality: GetEnv("AUDIO_QUALITY", "192"),
			TempDir:      GetEnv("TEMP_DIR", os.TempDir()),
			Retries:      getEnvAsInt("DOWNLOAD_RETRIES", 3),
		},
		Archive: ArchiveConfig{
			Bucket:    GetEnv("ARCHIVE_BUCKET", ""),
			Endpoint:  GetEnv("ARCHIVE_ENDPOINT", ""),
			Region:    GetEnv("ARCHIVE_REGION", "us-east-1"),
			AccessKey: GetEnv("ARCHIVE_ACCESS_KEY", ""),
			SecretKey: GetEnv("ARCHIVE_SECRET_KEY", ""),
			Prefix:    GetEnv("ARCHIVE_PREFIX", "yt-adwatch"),
		},
		DBPath:       GetEnv("DB_PATH", "./data/yt-adwatch.db"),
		LogDir:       GetEnv("LOG_DIR", ""),
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
		LogFormat:    GetEnv("LOG_FORMAT", "text"),
		LookbackDays: getEnvAsInt("LOOKBACK_DAYS", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Config(op, err, "invalid configuration")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" {
		return errors.New("YOUTUBE_API_KEY is required")
	}
	if c.YouTube.MaxResults <= 0 || c.YouTube.MaxResults > 50 {
		return errors.Errorf("search max results must be between 1 and 50, got %d", c.YouTube.MaxResults)
	}
	if c.YouTube.RequestsPerSecond <= 0 {
		return errors.New("youtube requests per second must be greater than 0")
	}
	if c.LookbackDays <= 0 {
		return errors.New("lookback days must be greater than 0")
	}
	if len(c.Keywords.Risk) == 0 {
		return errors.New("at least one risk keyword is required")
	}
	if !oneOf(c.STT.Backend, Backends) {
		return errors.Errorf("unknown STT backend %q (want one of %s)", c.STT.Backend, strings.Join(Backends, ", "))
	}
	if c.STT.Backend == BackendOpenAI && c.STT.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required for the openai STT backend")
	}
	if c.STT.Timeout <= 0 {
		return errors.New("transcribe timeout must be greater than 0")
	}
	if c.Download.Retries <= 0 {
		return errors.New("download retries must be greater than 0")
	}
	if !oneOf(c.Sheets.ValueInputOption, ValueInputs) {
		return errors.Errorf("unknown sheets value input option %q (want one of %s)", c.Sheets.ValueInputOption, strings.Join(ValueInputs, ", "))
	}
	return nil
}

// ValidateSheets checks the settings needed to open the worksheet. It is
// separate from Validate because runs that find nothing never touch the sheet.
func (c *Config) ValidateSheets() error {
	const op = "config.ValidateSheets"

	if c.Sheets.CredentialsJSON == "" {
		return apperrors.Config(op, nil, "GSHEETS_KEY is required to upload")
	}
	if c.Sheets.SpreadsheetID == "" {
		return apperrors.Config(op, nil, "SPREADSHEET_ID is required to upload")
	}
	if c.Sheets.WorksheetName == "" {
		return apperrors.Config(op, nil, "WORKSHEET_NAME is required to upload")
	}
	if len(c.Sheets.Scopes) == 0 {
		return apperrors.Config(op, nil, "at least one sheets scope is required")
	}
	return nil
}

func oneOf(value string, options []string) bool {
	for _, o := range options {
		if value == o {
			return true
		}
	}
	return false
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid number, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// getEnvAsCorrections parses "wrong=right,wrong2=right2". Order is preserved.
func getEnvAsCorrections(key string, defaultValue []Correction) []Correction {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var out []Correction
	for _, pair := range strings.Split(value, ",") {
		wrong, correct, ok := strings.Cut(pair, "=")
		wrong = strings.TrimSpace(wrong)
		if !ok || wrong == "" {
			logrus.WithFields(logrus.Fields{
				"key":  key,
				"pair": pair,
			}).Warn("Invalid correction pair, skipping")
			continue
		}
		out = append(out, Correction{Wrong: wrong, Correct: strings.TrimSpace(correct)})
	}
	return out
}
