package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/backtester-api/services"
	"github.com/jiaming2012/strategy-engine/src/eventmodels"
	"github.com/jiaming2012/strategy-engine/src/eventservices"
	"github.com/jiaming2012/strategy-engine/src/strategy"
	"github.com/jiaming2012/strategy-engine/src/telemetry"
	"github.com/jiaming2012/strategy-engine/src/utils"
)

func newBacktestFeed(ctx context.Context, cfg *eventmodels.BacktestConfigYAML) (models.IBacktesterDataFeed, error) {
	period, err := models.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		return nil, err
	}

	switch cfg.Source {
	case eventmodels.DataSourceCsv:
		bars, err := utils.ImportCandlesFromCsv(cfg.CsvPath)
		if err != nil {
			return nil, err
		}

		return models.NewBacktesterCandleRepository(cfg.Symbol, period, utils.SortCandles(bars, period)), nil
	case eventmodels.DataSourcePolygon:
		if cfg.Start == "" {
			return nil, fmt.Errorf("the polygon source needs a start time")
		}

		apiKey, err := utils.GetEnv("POLYGON_API_KEY")
		if err != nil {
			return nil, err
		}

		return eventservices.NewPolygonDataFeed(ctx, eventservices.NewPolygonClient(apiKey, nil), cfg.Symbol, period), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func runBacktest(ctx context.Context, cfg *eventmodels.BacktestConfigYAML, w io.Writer, metrics *telemetry.EngineMetrics) (*models.BacktestResult, error) {
	feed, err := newBacktestFeed(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("runBacktest: %w", err)
	}

	strat, err := strategy.NewStrategy(cfg.Symbol, cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("runBacktest: %w", err)
	}

	portfolio, err := models.NewPortfolioSimulator(cfg.Symbol, cfg.InitialEquity, cfg.Portfolio)
	if err != nil {
		return nil, fmt.Errorf("runBacktest: %w", err)
	}

	start, end, err := cfg.Window()
	if err != nil {
		return nil, fmt.Errorf("runBacktest: %w", err)
	}

	log.Infof("backtesting %s (%s) with %s from %v to %v", cfg.Symbol, cfg.Timeframe, cfg.Strategy.Name, start, end)

	backtester := services.NewBacktester(feed, strat, portfolio, models.NewClock(start, end), metrics)

	result, err := backtester.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("runBacktest: %w", err)
	}

	services.RenderBacktestReport(w, result, cfg.ReportTrades)

	if cfg.OutDir != "" {
		tradesPath := filepath.Join(cfg.OutDir, "trades.csv")
		if err := utils.ExportTradesToCsv(result.Trades, tradesPath); err != nil {
			return nil, fmt.Errorf("runBacktest: %w", err)
		}

		equityPath := filepath.Join(cfg.OutDir, "equity.csv")
		if err := utils.ExportEquityCurveToCsv(result.EquityCurve, equityPath); err != nil {
			return nil, fmt.Errorf("runBacktest: %w", err)
		}

		log.Infof("wrote %s and %s", tradesPath, equityPath)
	}

	return result, nil
}
