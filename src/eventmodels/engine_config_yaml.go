package eventmodels

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

const (
	DataSourceCsv     = "csv"
	DataSourcePolygon = "polygon"

	ExchangePolygon  = "polygon"
	ExchangeCoinbase = "coinbase"
)

type EngineConfigYAML struct {
	Backtest *BacktestConfigYAML `yaml:"backtest"`
	Live     *LiveConfigYAML     `yaml:"live"`
}

type StrategyYAML struct {
	Name      string  `yaml:"name"`
	Size      float64 `yaml:"size"`
	Period    int     `yaml:"period"`
	StdDevs   float64 `yaml:"std_devs"`
	RsiPeriod int     `yaml:"rsi_period"`
}

type BacktestConfigYAML struct {
	Symbol        string                 `yaml:"symbol"`
	Source        string                 `yaml:"source"`
	CsvPath       string                 `yaml:"csv_path"`
	Timeframe     string                 `yaml:"timeframe"`
	Start         string                 `yaml:"start"`
	End           string                 `yaml:"end"`
	InitialEquity float64                `yaml:"initial_equity"`
	Portfolio     models.PortfolioConfig `yaml:"portfolio"`
	Strategy      StrategyYAML           `yaml:"strategy"`
	ReportTrades  int                    `yaml:"report_trades"`
	OutDir        string                 `yaml:"out_dir"`
}

// Window parses the optional start and end bounds. Zero values mean unbounded.
func (c *BacktestConfigYAML) Window() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if c.Start != "" {
		if start, err = ParseCsvTimestamp(c.Start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("BacktestConfigYAML: start: %w", err)
		}
	}

	if c.End != "" {
		if end, err = ParseCsvTimestamp(c.End); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("BacktestConfigYAML: end: %w", err)
		}
	}

	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("BacktestConfigYAML: end %v must be after start %v", end, start)
	}

	return start, end, nil
}

func (c *BacktestConfigYAML) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("BacktestConfigYAML: symbol is not set")
	}

	switch c.Source {
	case DataSourceCsv:
		if c.CsvPath == "" {
			return fmt.Errorf("BacktestConfigYAML: csv_path is required for the csv source")
		}
	case DataSourcePolygon:
	default:
		return fmt.Errorf("BacktestConfigYAML: unknown source %q", c.Source)
	}

	if _, err := models.ParseTimeframe(c.Timeframe); err != nil {
		return fmt.Errorf("BacktestConfigYAML: %w", err)
	}

	if c.InitialEquity <= 0 {
		return fmt.Errorf("BacktestConfigYAML: initial_equity must be > 0")
	}

	if _, _, err := c.Window(); err != nil {
		return err
	}

	if err := c.Portfolio.Validate(); err != nil {
		return fmt.Errorf("BacktestConfigYAML: %w", err)
	}

	return nil
}

type LiveSessionYAML struct {
	models.LiveSessionMeta `yaml:",inline"`
	Strategy               StrategyYAML `yaml:"strategy"`
}

type LiveConfigYAML struct {
	ListenAddr  string            `yaml:"listen_addr"`
	Exchange    string            `yaml:"exchange"`
	MaxSessions int               `yaml:"max_sessions"`
	SessionTTL  time.Duration     `yaml:"session_ttl"`
	StopTimeout time.Duration     `yaml:"stop_timeout"`
	Sessions    []LiveSessionYAML `yaml:"sessions"`
}

func (c *LiveConfigYAML) Validate() error {
	switch c.Exchange {
	case ExchangePolygon, ExchangeCoinbase:
	default:
		return fmt.Errorf("LiveConfigYAML: unknown exchange %q", c.Exchange)
	}

	if c.MaxSessions < 0 {
		return fmt.Errorf("LiveConfigYAML: max_sessions must be >= 0")
	}

	for i := range c.Sessions {
		if err := c.Sessions[i].Validate(); err != nil {
			return fmt.Errorf("LiveConfigYAML: sessions[%d]: %w", i, err)
		}
	}

	return nil
}

func (c *EngineConfigYAML) setDefaults() {
	if b := c.Backtest; b != nil {
		if b.Source == "" {
			b.Source = DataSourceCsv
		}
		if b.Timeframe == "" {
			b.Timeframe = "1m"
		}
		if b.InitialEquity == 0 {
			b.InitialEquity = 10000
		}
		if b.Strategy.Name == "" {
			b.Strategy.Name = "buy_and_hold"
		}
		b.Source = strings.ToLower(b.Source)
	}

	if l := c.Live; l != nil {
		if l.ListenAddr == "" {
			l.ListenAddr = ":8080"
		}
		if l.Exchange == "" {
			l.Exchange = ExchangePolygon
		}
		l.Exchange = strings.ToLower(l.Exchange)

		for i := range l.Sessions {
			s := &l.Sessions[i]
			if s.Timeframe == "" {
				s.Timeframe = "1m"
			}
			if s.PollInterval == 0 {
				s.PollInterval = 5 * time.Second
			}
			if s.InitialEquity == 0 {
				s.InitialEquity = 10000
			}
			if s.Strategy.Name == "" {
				s.Strategy.Name = "buy_and_hold"
			}
		}
	}
}

func ParseEngineConfig(data []byte) (*EngineConfigYAML, error) {
	var config EngineConfigYAML
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ParseEngineConfig: failed to unmarshal: %w", err)
	}

	config.setDefaults()

	if config.Backtest != nil {
		if err := config.Backtest.Validate(); err != nil {
			return nil, fmt.Errorf("ParseEngineConfig: %w", err)
		}
	}

	if config.Live != nil {
		if err := config.Live.Validate(); err != nil {
			return nil, fmt.Errorf("ParseEngineConfig: %w", err)
		}
	}

	return &config, nil
}

func LoadEngineConfig(path string) (*EngineConfigYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadEngineConfig: failed to read %s: %w", path, err)
	}

	return ParseEngineConfig(data)
}
