package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/crime-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
)

type publishOptions struct {
	criteriaFlags
	forecastFlags
	timeout time.Duration
}

func newPublishCmd(a *app) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a dashboard report to the Kafka report topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.publish(cmd, opts)
		},
	}
	opts.criteriaFlags.bind(cmd)
	opts.forecastFlags.bind(cmd)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "deadline for the broker write")
	return cmd
}

func (a *app) publish(cmd *cobra.Command, opts *publishOptions) error {
	if !a.cfg.KafkaEnabled {
		return errors.New("publishing requires KAFKA_ENABLED=true")
	}
	c, err := opts.criteria(cmd)
	if err != nil {
		return err
	}
	req, err := opts.request()
	if err != nil {
		return err
	}

	session, err := a.newSession(observability.NewMetricsWith(prometheus.NewRegistry()))
	if err != nil {
		return err
	}

	writer := kafkaadapter.NewWriter(a.cfg, a.logger)
	defer func() {
		if err := writer.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	report, err := session.PublishReport(ctx, writer, c, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published report %s to %s (%d incidents)\n",
		report.ID, a.cfg.KafkaReportTopic, report.Matched)
	return nil
}
