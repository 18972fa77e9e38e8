package main

import (
	"context"
	"flag"
	"log"
	"os"

	"evcc-charge-report/internal/config"
	"evcc-charge-report/internal/delivery"
	"evcc-charge-report/internal/evcc"
	"evcc-charge-report/internal/i18n"
	"evcc-charge-report/internal/observability/metrics"
	"evcc-charge-report/internal/render"
	"evcc-charge-report/internal/report/application"
	"evcc-charge-report/internal/report/domain"
)

func main() {
	year := flag.Int("year", 0, "report year (e.g. 2024); defaults to the previous month")
	month := flag.Int("month", 0, "report month (1-12); defaults to the previous month")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Printf("config error: %v", err)
		os.Exit(1)
	}

	metrics.Init()

	source, err := evcc.NewClient(cfg.EVCCURL, cfg.EVCCPassword)
	if err != nil {
		logger.Printf("evcc client error: %v", err)
		os.Exit(1)
	}

	dispatcher, err := delivery.NewDispatcher(delivery.Config{
		OutputDir:      cfg.OutputDir,
		SMTPHost:       cfg.SMTPServer,
		SMTPPort:       cfg.SMTPPort,
		SenderEmail:    cfg.SenderEmail,
		SenderPassword: cfg.SenderPassword,
		Recipient:      cfg.RecipientEmail,
	}, nil, logger)
	if err != nil {
		logger.Printf("dispatcher error: %v", err)
		os.Exit(1)
	}

	formatter := i18n.New(cfg.Locale)
	pipeline, err := application.NewPipeline(source, render.Builder{}, dispatcher, formatter, logger, application.Options{
		Sender: render.Sender{
			Name:   cfg.SenderName,
			Street: cfg.SenderStreet,
			City:   cfg.SenderCity,
		},
		CostPolicy: domain.CostPolicy(cfg.CostPolicy),
		ExportXLSX: cfg.ExportXLSX,
	})
	if err != nil {
		logger.Printf("pipeline error: %v", err)
		os.Exit(1)
	}

	result, runErr := pipeline.Run(context.Background(), *year, *month)
	if runErr != nil {
		logger.Printf("report aborted, no document produced: %v", runErr)
	} else {
		logger.Printf("report finished: period=%s sessions=%d persisted=%t emailed=%t warnings=%d",
			result.Period.Key(), result.Totals.SessionCount,
			result.Outcome.Persisted, result.Outcome.Emailed, len(result.Warnings))
		for _, derr := range result.Outcome.Errors {
			logger.Printf("delivery issue: %v", derr)
		}
	}

	if cfg.MetricsPushURL != "" {
		if perr := metrics.Push(cfg.MetricsPushURL); perr != nil {
			logger.Printf("metrics push failed: %v", perr)
		}
	}

	os.Exit(result.ExitCode())
}
