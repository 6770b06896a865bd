// Package config loads the scraper configuration: the quote source
// location, the opaque selector set, retry and pacing knobs, and the batch
// capacity. Values come from an optional YAML file with environment
// overrides; structural validation failures are fatal before any
// scheduling starts.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"finscrape/internal/page"
)

// Selectors mirrors the structural locator set as configuration keys. The
// strings are opaque CSS selectors passed through to extraction wholesale.
type Selectors struct {
	WrongVariant     string `mapstructure:"wrong_variant"`
	WrongVariantText string `mapstructure:"wrong_variant_text"`
	LiveMarker       string `mapstructure:"live_marker"`

	Name         string `mapstructure:"name"`
	Price        string `mapstructure:"price"`
	Change       string `mapstructure:"change"`
	SummaryLabel string `mapstructure:"summary_label"`
	SummaryValue string `mapstructure:"summary_value"`

	SideTab            string `mapstructure:"side_tab"`
	StatsValuationHead string `mapstructure:"stats_valuation_head"`
	StatsValuationRow  string `mapstructure:"stats_valuation_row"`
	StatsValuationCell string `mapstructure:"stats_valuation_cell"`
	StatsHighlightRow  string `mapstructure:"stats_highlight_row"`
	StatsHighlightCell string `mapstructure:"stats_highlight_cell"`

	ExpandAll         string `mapstructure:"expand_all"`
	StatementHeadRow  string `mapstructure:"statement_head_row"`
	StatementHeadCell string `mapstructure:"statement_head_cell"`
	StatementRow      string `mapstructure:"statement_row"`
	StatementCell     string `mapstructure:"statement_cell"`

	SectorIndustry  string `mapstructure:"sector_industry"`
	Employees       string `mapstructure:"employees"`
	ProfileHeadCell string `mapstructure:"profile_head_cell"`
	ProfileRow      string `mapstructure:"profile_row"`
	ProfileCell     string `mapstructure:"profile_cell"`

	MajorHolders string `mapstructure:"major_holders"`

	InsiderRow      string `mapstructure:"insider_row"`
	InsiderHeadCell string `mapstructure:"insider_head_cell"`
	InsiderCell     string `mapstructure:"insider_cell"`

	RelatedTicker string `mapstructure:"related_ticker"`
	TickerSymbol  string `mapstructure:"ticker_symbol"`
}

// Page converts the configuration block into the extraction selector set.
func (s Selectors) Page() page.Selectors {
	return page.Selectors{
		WrongVariant:     s.WrongVariant,
		WrongVariantText: s.WrongVariantText,
		LiveMarker:       s.LiveMarker,

		Name:         s.Name,
		Price:        s.Price,
		Change:       s.Change,
		SummaryLabel: s.SummaryLabel,
		SummaryValue: s.SummaryValue,

		SideTab:            s.SideTab,
		StatsValuationHead: s.StatsValuationHead,
		StatsValuationRow:  s.StatsValuationRow,
		StatsValuationCell: s.StatsValuationCell,
		StatsHighlightRow:  s.StatsHighlightRow,
		StatsHighlightCell: s.StatsHighlightCell,

		ExpandAll:         s.ExpandAll,
		StatementHeadRow:  s.StatementHeadRow,
		StatementHeadCell: s.StatementHeadCell,
		StatementRow:      s.StatementRow,
		StatementCell:     s.StatementCell,

		SectorIndustry:  s.SectorIndustry,
		Employees:       s.Employees,
		ProfileHeadCell: s.ProfileHeadCell,
		ProfileRow:      s.ProfileRow,
		ProfileCell:     s.ProfileCell,

		MajorHolders: s.MajorHolders,

		InsiderRow:      s.InsiderRow,
		InsiderHeadCell: s.InsiderHeadCell,
		InsiderCell:     s.InsiderCell,

		RelatedTicker: s.RelatedTicker,
		TickerSymbol:  s.TickerSymbol,
	}
}

// Config holds all configuration for the scraper.
type Config struct {
	// Quote source
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Headless  bool   `mapstructure:"headless"`

	// Acquisition
	Retries        int           `mapstructure:"retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Scheduling: the worker pool size is floor(parallelism * capacity).
	Capacity    float64 `mapstructure:"capacity"`
	Parallelism int     `mapstructure:"parallelism"`

	// Pacing, requests per second per traffic class.
	RenderedPerSec float64 `mapstructure:"rendered_per_sec"`
	StaticPerSec   float64 `mapstructure:"static_per_sec"`

	// Derivation
	Mode      string `mapstructure:"mode"`
	Precision int    `mapstructure:"precision"`

	Recommendations int `mapstructure:"recommendations"`

	Selectors Selectors `mapstructure:"selectors"`
}

// Load reads configuration from an optional config file with environment
// overrides (prefix FINSCRAPE_, nested keys joined by underscores, e.g.
// FINSCRAPE_SELECTORS_LIVE_MARKER). Missing required values and
// out-of-range knobs fail here, before any scheduling.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("finscrape")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.finscrape")

	// The config file is optional; defaults cover a full run.
	_ = v.ReadInConfig()

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://finance.yahoo.com/quote")
	v.SetDefault("user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0 Safari/537.36")
	v.SetDefault("headless", true)

	v.SetDefault("retries", 10)
	v.SetDefault("retry_delay", "1s")
	v.SetDefault("settle_delay", "2s")
	v.SetDefault("request_timeout", "30s")

	v.SetDefault("capacity", 0.5)
	v.SetDefault("parallelism", 0) // 0 selects the host parallelism

	v.SetDefault("rendered_per_sec", 2.0)
	v.SetDefault("static_per_sec", 5.0)

	v.SetDefault("mode", "TTM")
	v.SetDefault("precision", 2)
	v.SetDefault("recommendations", 3)

	v.SetDefault("selectors.wrong_variant", "a.rapid-noclick-resp.opt-in-link")
	v.SetDefault("selectors.wrong_variant_text", "Back to classic")
	v.SetDefault("selectors.live_marker", "fin-streamer.livePrice")

	v.SetDefault("selectors.name", "div.longName")
	v.SetDefault("selectors.price", "fin-streamer.livePrice")
	v.SetDefault("selectors.change", "fin-streamer.priceChange")
	v.SetDefault("selectors.summary_label", "span.label")
	v.SetDefault("selectors.summary_value", "span.value")

	v.SetDefault("selectors.side_tab", "a[category]")
	v.SetDefault("selectors.stats_valuation_head", "th.yf-104jbnt")
	v.SetDefault("selectors.stats_valuation_row", "tr.yf-104jbnt")
	v.SetDefault("selectors.stats_valuation_cell", "td.yf-104jbnt")
	v.SetDefault("selectors.stats_highlight_row", "tr.row.yf-vaowmx")
	v.SetDefault("selectors.stats_highlight_cell", "td.yf-vaowmx")

	v.SetDefault("selectors.expand_all", "button.link2-btn")
	v.SetDefault("selectors.statement_head_row", "div.row.yf-1ezv2n5")
	v.SetDefault("selectors.statement_head_cell", "div.column")
	v.SetDefault("selectors.statement_row",
		".row.lv-0.yf-1xjz32c, .row.lv-1.yf-1xjz32c, .row.lv-2.yf-1xjz32c, .row.lv-3.yf-1xjz32c, .row.lv-4.yf-1xjz32c")
	v.SetDefault("selectors.statement_cell", "div.yf-1xjz32c")

	v.SetDefault("selectors.sector_industry", "a.subtle-link.fin-size-large")
	v.SetDefault("selectors.employees", "dd")
	v.SetDefault("selectors.profile_head_cell", "th.yf-mj92za")
	v.SetDefault("selectors.profile_row", "tr.yf-mj92za")
	v.SetDefault("selectors.profile_cell", "td.yf-mj92za")

	v.SetDefault("selectors.major_holders", "td.majorHolders")

	v.SetDefault("selectors.insider_row", "tr.yf-1toamfi")
	v.SetDefault("selectors.insider_head_cell", "th.yf-1toamfi")
	v.SetDefault("selectors.insider_cell", "td.yf-1toamfi")

	v.SetDefault("selectors.related_ticker", "a.loud-link.fin-size-large")
	v.SetDefault("selectors.ticker_symbol", "span.symbol")
}

// requiredSelectors are the locators without which no page can be
// validated or lifted at all.
func (c *Config) requiredSelectors() map[string]string {
	return map[string]string{
		"selectors.live_marker":    c.Selectors.LiveMarker,
		"selectors.summary_label":  c.Selectors.SummaryLabel,
		"selectors.summary_value":  c.Selectors.SummaryValue,
		"selectors.statement_row":  c.Selectors.StatementRow,
		"selectors.statement_cell": c.Selectors.StatementCell,
	}
}

func (c *Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	for key, val := range c.requiredSelectors() {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Capacity <= 0 || c.Capacity > 1 {
		return fmt.Errorf("capacity must be in (0, 1], got %v", c.Capacity)
	}
	if c.Retries <= 0 {
		return fmt.Errorf("retries must be positive, got %d", c.Retries)
	}
	if c.Precision < 0 {
		return fmt.Errorf("precision must not be negative, got %d", c.Precision)
	}
	mode := strings.ToUpper(c.Mode)
	if mode != "TTM" && mode != "10K" {
		return fmt.Errorf("mode must be TTM or 10K, got %q", c.Mode)
	}
	return nil
}
