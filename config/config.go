package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUSER  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	// AdminPathPrefix is the URL prefix treated as administrative when
	// classifying unauthenticated access attempts.
	AdminPathPrefix string `json:"adminpathprefix"`

	// SendAlertEmails gates outbound alert dispatch entirely.
	SendAlertEmails bool `json:"sendalertemails"`

	SMTPHost string `json:"smtphost"`
	SMTPPort uint16 `json:"smtpport"`
	SMTPUser string `json:"smtpuser"`
	SMTPPass string `json:"-"`
	SMTPFrom string `json:"smtpfrom"`

	// AlertTypesByRole maps a recipient designation to the severities that
	// designation subscribes to. Loaded once at startup, read-only afterwards.
	AlertTypesByRole map[string][]string `json:"alerttypesbyrole"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// Load environment variables from .env file. Missing file is fine,
		// the environment itself may already carry everything we need.
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
		smtpPort, _ := strconv.ParseUint(os.Getenv("SMTPPORT"), 10, 16)

		config = &Config{
			AppName:         os.Getenv("APPNAME"),
			AppEnv:          os.Getenv("APPENV"),
			AppPort:         uint16(appPort),
			GinMode:         os.Getenv("GINMODE"),
			DBHost:          os.Getenv("DBHOST"),
			DBPort:          uint16(dbPort),
			DBName:          os.Getenv("DBNAME"),
			DBUSER:          os.Getenv("DBUSER"),
			DBPass:          os.Getenv("DBPASS"),
			AdminPathPrefix: getEnvDefault("ADMIN_PATH_PREFIX", "/admin/"),
			SendAlertEmails: parseBool(os.Getenv("SEND_API_LOG_EMAILS")),
			SMTPHost:        os.Getenv("SMTPHOST"),
			SMTPPort:        uint16(smtpPort),
			SMTPUser:        os.Getenv("SMTPUSER"),
			SMTPPass:        os.Getenv("SMTPPASS"),
			SMTPFrom:        os.Getenv("SMTPFROM"),
			AlertTypesByRole: map[string][]string{
				"owner":     splitAlertTypes(os.Getenv("OWNER_ALERT_TYPES")),
				"admin":     splitAlertTypes(os.Getenv("ADMIN_ALERT_TYPES")),
				"developer": splitAlertTypes(os.Getenv("DEVELOPERS_ALERT_TYPES")),
				"analyst":   splitAlertTypes(os.Getenv("ANALYST_ALERT_TYPES")),
				"support":   splitAlertTypes(os.Getenv("SUPPORT_ALERT_TYPES")),
				"other":     splitAlertTypes(os.Getenv("OTHER_USER_ALERT_TYPES")),
			},
		}
	})
	return config
}

// ResetConfigForTest clears the config singleton so tests can reload it with
// a different environment. Not for production use.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

func getEnvDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// splitAlertTypes parses a comma-separated severity list, e.g. "warning,critical".
func splitAlertTypes(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ConnectMySQL establishes a database connection using the configuration values.
// Under APPENV=test an in-memory SQLite database is used instead so tests never
// need a running MySQL server.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()

	if cfg.AppEnv == "test" {
		return gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	}

	// Build the Data Source Name (DSN) using the configuration values.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
