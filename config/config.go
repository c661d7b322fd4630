package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tazhate/familyschedule/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabasePath string
	Timezone     *time.Location
	ServerPort   string

	APIUsername string
	APIPassword string

	TelegramToken     string
	OwnerTelegramID   int64
	PartnerTelegramID int64
	WebhookURL        string
	MorningTime       string

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
	CalDAVSyncCron string
	CalDAVWeeks    int

	FamilyFile string
	LogDir     string
	Debug      bool
}

// Load reads the configuration from the environment after merging a .env
// file from the working directory, if there is one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var ownerID, partnerID int64
	if v := os.Getenv("OWNER_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("OWNER_TELEGRAM_ID must be a number")
		}
		ownerID = id
	}
	if v := os.Getenv("PARTNER_TELEGRAM_ID"); v != "" {
		partnerID, _ = strconv.ParseInt(v, 10, 64)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token != "" && ownerID == 0 {
		return nil, fmt.Errorf("OWNER_TELEGRAM_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	tz, err := time.LoadLocation(getenv("TIMEZONE", "Europe/Stockholm"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	morningTime := getenv("MORNING_TIME", "07:00")
	if h, m, err := domain.ParseClock(morningTime); err != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return nil, fmt.Errorf("invalid MORNING_TIME %q", morningTime)
	}

	weeks := 4
	if v := os.Getenv("CALDAV_WEEKS"); v != "" {
		weeks, err = strconv.Atoi(v)
		if err != nil || weeks < 1 {
			return nil, fmt.Errorf("CALDAV_WEEKS must be a positive number")
		}
	}

	debug, _ := strconv.ParseBool(os.Getenv("DEBUG"))

	return &Config{
		DatabasePath:      getenv("DATABASE_PATH", "./data/familyschedule.db"),
		Timezone:          tz,
		ServerPort:        getenv("SERVER_PORT", "8080"),
		APIUsername:       os.Getenv("API_USERNAME"),
		APIPassword:       os.Getenv("API_PASSWORD"),
		TelegramToken:     token,
		OwnerTelegramID:   ownerID,
		PartnerTelegramID: partnerID,
		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		MorningTime:       morningTime,
		CalDAVURL:         os.Getenv("CALDAV_URL"),
		CalDAVUsername:    os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:    os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar:    os.Getenv("CALDAV_CALENDAR"),
		CalDAVSyncCron:    getenv("CALDAV_SYNC_CRON", "*/30 * * * *"),
		CalDAVWeeks:       weeks,
		FamilyFile:        os.Getenv("FAMILY_FILE"),
		LogDir:            os.Getenv("LOG_DIR"),
		Debug:             debug,
	}, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	return telegramID == c.OwnerTelegramID || (c.PartnerTelegramID != 0 && telegramID == c.PartnerTelegramID)
}

// TelegramEnabled reports whether the bot should run.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// CalDAVEnabled reports whether activities are pushed to a CalDAV calendar.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVUsername != "" && c.CalDAVPassword != "" && c.CalDAVCalendar != ""
}

// MorningCron returns the cron spec of the daily digest.
func (c *Config) MorningCron() string {
	h, m, _ := domain.ParseClock(c.MorningTime)
	return fmt.Sprintf("%d %d * * *", m, h)
}

// FamilyFile is the YAML roster file.
type FamilyFile struct {
	Members []domain.FamilyMember `yaml:"members"`
}

// LoadFamily reads the roster from a YAML file. An empty path or a missing
// file yields nil, meaning the built-in roster.
func LoadFamily(path string) ([]domain.FamilyMember, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read family file: %w", err)
	}

	var f FamilyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse family file: %w", err)
	}
	if err := domain.ValidateRoster(f.Members); err != nil {
		return nil, fmt.Errorf("family file %s: %w", path, err)
	}
	return f.Members, nil
}
