package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey            string
	LLMAPIBase           string
	LLMModel             string
	LLMClient            *llm.Client // nil = search query rewriting disabled
	SearchMaxResults     int
	SearchRatePerSec     float64
	SearchRegion         string
	MaxContentChars      int
	FetchTimeout         time.Duration
	YtDlpPath            string
	CaptionLangs         []string
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
// Zero values fall back to the defaults used by main.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = newFetchClient()
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 4000
	}
	if c.SearchMaxResults <= 0 {
		c.SearchMaxResults = 5
	}
	if c.SearchRegion == "" {
		c.SearchRegion = "wt-wt"
	}
	if c.YtDlpPath == "" {
		c.YtDlpPath = "yt-dlp"
	}
	if len(c.CaptionLangs) == 0 {
		c.CaptionLangs = []string{"en"}
	}
	cfg = c
	Cfg = &cfg
	initSearchLimiter(c.SearchRatePerSec)
}
