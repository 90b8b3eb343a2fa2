package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rowboat-io/rowboat/internal/bootstrap"
	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/domain/model"
	"github.com/rowboat-io/rowboat/internal/payload"
	"github.com/rowboat-io/rowboat/internal/sink"
)

// runList prints all export definitions.
func runList(ctx *commandContext, _ []string) error {
	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			ctx.Logger.Error("close db failed", "error", closeErr)
		}
	}()

	exports, err := data.NewExportRepo(db).List(ctx.Ctx)
	if err != nil {
		return err
	}
	if len(exports) == 0 {
		return writef(os.Stdout, "no exports defined\n")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "NAME\tSINK\tFORMAT\tSCHEDULE\tENABLED\tLAST RUN\n"); err != nil {
		return err
	}
	for _, e := range exports {
		lastRun := "never"
		if e.LastRunAt != nil {
			lastRun = e.LastRunAt.UTC().Format(time.RFC3339)
		}
		if err := writef(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
			e.Name, e.SinkType, e.Format, e.Schedule, e.Enabled, lastRun); err != nil {
			return err
		}
	}
	return w.Flush()
}

// runAdd creates or updates an export definition.
func runAdd(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "export name (required)")
	query := fs.String("query", "", "SQL query to run (required)")
	sinkType := fs.String("sink", "ftp", "sink type: ftp or http")
	format := fs.String("format", "csv", "payload format: csv or json")
	filename := fs.String("filename", "", "remote filename for file sinks")
	schedule := fs.String("schedule", "", "six-field cron expression (required)")
	transform := fs.String("transform", "", "optional JMESPath transform for json payloads")
	disabled := fs.Bool("disabled", false, "create the export disabled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *transform != "" {
		if err := payload.ValidateTransform(*transform); err != nil {
			return err
		}
	}

	export := model.Export{
		Name:      strings.TrimSpace(*name),
		Query:     strings.TrimSpace(*query),
		SinkType:  model.SinkType(*sinkType),
		Format:    model.Format(*format),
		Filename:  strings.TrimSpace(*filename),
		Schedule:  strings.TrimSpace(*schedule),
		Transform: strings.TrimSpace(*transform),
		Enabled:   !*disabled,
	}

	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			ctx.Logger.Error("close db failed", "error", closeErr)
		}
	}()

	saved, err := data.NewExportRepo(db).Upsert(ctx.Ctx, &export)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "export %q saved (id %s)\n", saved.Name, saved.ID)
}

// runRemove deletes an export definition by name.
func runRemove(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	name := fs.String("name", "", "export name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("-name is required")
	}

	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			ctx.Logger.Error("close db failed", "error", closeErr)
		}
	}()

	deleted, err := data.NewExportRepo(db).Delete(ctx.Ctx, *name)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("export %q not found", *name)
	}
	return writef(os.Stdout, "export %q deleted\n", *name)
}

// runOnce triggers an export immediately, outside its schedule.
func runOnce(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	name := fs.String("name", "", "export name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("-name is required")
	}

	db, redisClient, err := connectInfra(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeInfra(db, redisClient); closeErr != nil {
			ctx.Logger.Error("close infra failed", "error", closeErr)
		}
	}()

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &ctx.Config,
		DB:          db,
		RedisClient: redisClient,
		Logger:      ctx.Logger,
	})
	if err != nil {
		return err
	}
	defer bootstrap.CloseServices(ctx.Ctx, services, ctx.Logger)

	run, err := services.Trigger.TriggerRun(ctx.Ctx, *name)
	if err != nil {
		return err
	}

	if run.Succeeded() {
		return writef(os.Stdout, "run %s succeeded: %d rows, %d bytes in %s\n",
			run.ID, run.Rows, run.Bytes, run.Duration())
	}
	return fmt.Errorf("run %s failed: %s", run.ID, run.Error)
}

// runHistory prints recent run history.
func runHistory(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	name := fs.String("name", "", "limit history to one export")
	limit := fs.Int("limit", 20, "maximum runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			ctx.Logger.Error("close db failed", "error", closeErr)
		}
	}()

	runRepo := data.NewRunRepo(db)

	var runs []model.Run
	if strings.TrimSpace(*name) != "" {
		export, getErr := data.NewExportRepo(db).GetByName(ctx.Ctx, *name)
		if getErr != nil {
			return getErr
		}
		runs, err = runRepo.RecentByExport(ctx.Ctx, export.ID, *limit)
	} else {
		runs, err = runRepo.Recent(ctx.Ctx, *limit)
	}
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return writef(os.Stdout, "no runs recorded\n")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "STARTED\tSTATUS\tROWS\tBYTES\tDURATION\tERROR\n"); err != nil {
		return err
	}
	for i := range runs {
		run := runs[i]
		if err := writef(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			run.Status, run.Rows, run.Bytes, run.Duration(), run.Error); err != nil {
			return err
		}
	}
	return w.Flush()
}

// runCheckSink delivers a small test payload to a configured sink.
func runCheckSink(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("check-sink", flag.ContinueOnError)
	sinkName := fs.String("sink", "", "sink to test: ftp or http (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kind := model.SinkType(strings.TrimSpace(*sinkName))
	sinks, err := bootstrap.BuildSinks(&ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}

	var target sink.Sink
	for _, s := range sinks {
		if s.Kind() == kind {
			target = s
			break
		}
	}
	if target == nil {
		return fmt.Errorf("sink %q is not configured", *sinkName)
	}

	body := []byte(`[{"check":"rowboat"}]`)
	if kind == model.SinkTypeFTP {
		body = []byte("check\nrowboat\n")
	}

	outcome := target.Deliver(ctx.Ctx, sink.Payload{
		Filename: "rowboat-check.txt",
		Data:     body,
	})
	if outcome.Failed() {
		return fmt.Errorf("sink check failed: %s", outcome.Description)
	}
	return writef(os.Stdout, "sink %s delivered %d bytes\n", kind, len(body))
}
