// Package airportcfg loads airport rules from a viper-readable rules file and
// merges them with runway geometry from the sector runway file.
package airportcfg

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"github.com/vatnor/runway-selector/internal/domain"
)

// Rules file layout:
//
//	defaults:            applied to airports that leave a field unset
//	  crosswind_limit_kt: 25
//	  overrides: [{kind: fog}, ...]
//	ignored: [ENRE, ENGK]
//	airports:
//	  ENZV:
//	    preferred_runway: "18"
//	    priority: [{runways: ["18", "36"], threshold_kt: 15}]
type rulesFile struct {
	Defaults airportRule            `mapstructure:"defaults"`
	Ignored  []string               `mapstructure:"ignored"`
	Airports map[string]airportRule `mapstructure:"airports"`
}

type airportRule struct {
	Runways          []domain.RunwayConfig `mapstructure:"runways"`
	CrosswindLimitKt *float64              `mapstructure:"crosswind_limit_kt"`
	TailwindLimitKt  *float64              `mapstructure:"tailwind_limit_kt"`
	Overrides        []domain.OverrideRule `mapstructure:"overrides"`
	Priority         []domain.PriorityRule `mapstructure:"priority"`
	PreferredRunway  string                `mapstructure:"preferred_runway"`
	Modes            []domain.RunwayMode   `mapstructure:"modes"`
}

// Catalog is the validated airport set. Airports failing validation are
// listed in Rejected and never evaluated.
type Catalog struct {
	Airports []domain.AirportConfig // sorted by ICAO
	Rejected []error                // *domain.ConfigurationError
	Ignored  []string
}

// Lookup returns the configuration for icao.
func (c *Catalog) Lookup(icao string) (domain.AirportConfig, bool) {
	i, ok := slices.BinarySearchFunc(c.Airports, icao, func(a domain.AirportConfig, t string) int {
		return strings.Compare(a.ICAO, t)
	})
	if !ok {
		return domain.AirportConfig{}, false
	}
	return c.Airports[i], true
}

// ICAOs returns the codes of all valid airports in order.
func (c *Catalog) ICAOs() []string {
	out := make([]string, len(c.Airports))
	for i, a := range c.Airports {
		out[i] = a.ICAO
	}
	return out
}

// Load reads the rules file and the optional sector runway file. A missing
// runway file is not an error; runways then come from the rules file alone.
func Load(rulesPath, runwayPath string, logger *slog.Logger) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(rulesPath)
	v.SetDefault("ignored", []string{})
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read airport rules %s: %w", rulesPath, err)
	}

	var rules rulesFile
	if err := v.Unmarshal(&rules); err != nil {
		return nil, fmt.Errorf("decode airport rules %s: %w", rulesPath, err)
	}

	geometry := map[string][]domain.RunwayConfig{}
	if runwayPath != "" {
		f, err := os.Open(runwayPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("runway file not found, using rules file runways only", "path", runwayPath)
		case err != nil:
			return nil, fmt.Errorf("open runway file: %w", err)
		default:
			geometry, err = ParseRunwayFile(f)
			f.Close()
			if err != nil {
				return nil, err
			}
		}
	}

	cat := build(rules, geometry)
	logger.Info("airport configuration loaded",
		"airports", len(cat.Airports),
		"rejected", len(cat.Rejected),
		"ignored", len(cat.Ignored),
	)
	for _, err := range cat.Rejected {
		logger.Warn("airport rejected", "error", err)
	}
	return cat, nil
}

func build(rules rulesFile, geometry map[string][]domain.RunwayConfig) *Catalog {
	ignored := make(map[string]bool, len(rules.Ignored))
	cat := &Catalog{}
	for _, icao := range rules.Ignored {
		icao = strings.ToUpper(icao)
		ignored[icao] = true
		cat.Ignored = append(cat.Ignored, icao)
	}
	slices.Sort(cat.Ignored)

	// viper lower-cases map keys.
	byICAO := make(map[string]airportRule, len(rules.Airports))
	for k, r := range rules.Airports {
		byICAO[strings.ToUpper(k)] = r
	}

	var codes []string
	for icao := range geometry {
		codes = append(codes, icao)
	}
	for icao := range byICAO {
		if _, ok := geometry[icao]; !ok {
			codes = append(codes, icao)
		}
	}
	slices.Sort(codes)

	for _, icao := range codes {
		if ignored[icao] {
			continue
		}
		ap := merge(icao, rules.Defaults, byICAO[icao], geometry[icao])
		if err := ap.Validate(); err != nil {
			cat.Rejected = append(cat.Rejected, err)
			continue
		}
		cat.Airports = append(cat.Airports, ap)
	}
	return cat
}

func merge(icao string, defaults, rule airportRule, geometry []domain.RunwayConfig) domain.AirportConfig {
	ap := domain.AirportConfig{
		ICAO:             icao,
		Runways:          slices.Clone(geometry),
		CrosswindLimitKt: defaults.CrosswindLimitKt,
		TailwindLimitKt:  defaults.TailwindLimitKt,
		Overrides:        slices.Clone(defaults.Overrides),
		Priority:         rule.Priority,
		PreferredRunway:  rule.PreferredRunway,
		Modes:            rule.Modes,
	}
	if len(rule.Runways) > 0 {
		ap.Runways = make([]domain.RunwayConfig, len(rule.Runways))
		for i, r := range rule.Runways {
			ap.Runways[i] = domain.RunwayConfig{Designator: r.Designator, HeadingDeg: normalizeConfigured(r.HeadingDeg)}
		}
	}
	if rule.CrosswindLimitKt != nil {
		ap.CrosswindLimitKt = rule.CrosswindLimitKt
	}
	if rule.TailwindLimitKt != nil {
		ap.TailwindLimitKt = rule.TailwindLimitKt
	}
	if rule.Overrides != nil {
		ap.Overrides = rule.Overrides
	}
	return ap
}

// normalizeConfigured maps 360 to 0 and leaves other out-of-range headings
// for Validate to reject.
func normalizeConfigured(h float64) float64 {
	if h == 360 {
		return 0
	}
	return h
}
