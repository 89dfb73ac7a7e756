package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
	appI18n "github.com/scoreunlock/scoreunlock/internal/i18n"
	"github.com/scoreunlock/scoreunlock/internal/model"
	"github.com/scoreunlock/scoreunlock/internal/notify"
	"github.com/scoreunlock/scoreunlock/internal/report"
	"github.com/scoreunlock/scoreunlock/internal/sharelink"
	"github.com/scoreunlock/scoreunlock/internal/summary"
	"github.com/scoreunlock/scoreunlock/internal/watcher"
)

func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", "table", "Output format (table, json)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
}

func checkFormat(v *viper.Viper) error {
	switch v.GetString("format") {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unknown format %q", v.GetString("format"))
	}
}

// writeOutput writes data as JSON, or the rendered table, to --output.
func writeOutput(v *viper.Viper, data any, table func() string) error {
	w, closeFn, err := report.Output(v.GetString("output"))
	if err != nil {
		return err
	}
	if v.GetString("format") == "json" {
		err = report.WriteJSON(w, data)
	} else {
		_, err = fmt.Fprintln(w, table())
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print class statistics for every assignment",
		Args:  cobra.NoArgs,
		RunE:  runSummary,
	}
	addOutputFlags(cmd)
	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := checkFormat(v); err != nil {
		return err
	}
	ctx := appI18n.WithLang(cmd.Context(), cfg.Lang)

	sum, err := summary.Complete(ctx, newClient(cfg), cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("summarize assignments: %w", err)
	}
	return writeOutput(v, sum, func() string { return report.SummaryTable(ctx, sum) })
}

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare computed means with the reported course averages",
		Args:  cobra.NoArgs,
		RunE:  runCompare,
	}
	addOutputFlags(cmd)
	return cmd
}

func runCompare(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := checkFormat(v); err != nil {
		return err
	}
	ctx := appI18n.WithLang(cmd.Context(), cfg.Lang)
	client := newClient(cfg)

	sum, err := summary.Complete(ctx, client, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("summarize assignments: %w", err)
	}
	perf, err := client.AllPerfReports(ctx)
	if err != nil {
		return fmt.Errorf("fetch performance reports: %w", err)
	}
	cmp := summary.CompareAverages(sum, perf)
	return writeOutput(v, cmp, func() string { return report.CompareTable(ctx, cmp) })
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll assignments and notify when anything changes",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	f := cmd.Flags()
	f.Duration("interval", time.Minute, "Polling interval")
	f.String("notifier", string(model.NotifierTerminal), "Notification backend (terminal, desktop)")
	f.Bool("force-notify", false, "Print terminal notifications even when stderr is not a terminal")
	return cmd
}

func newNotifier(kind model.NotifierKind, force bool) watcher.Notifier {
	if kind == model.NotifierDesktop {
		return notify.NewDesktop()
	}
	return notify.NewTerminal(os.Stderr, force)
}

// summaryDiff builds the localized notification body for a summary change.
func summaryDiff(ctx context.Context) watcher.DiffFunc[model.Summary] {
	return func(old, updated model.Summary) (string, error) {
		diff := summary.DiffSummaries(old, updated)
		return report.ChangeSummary(ctx, diff, strings.Count(diff, "\n")), nil
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()
	ctx = appI18n.WithLang(ctx, cfg.Lang)

	client := newClient(cfg)
	produce := func(ctx context.Context) (model.Summary, error) {
		return summary.Complete(ctx, client, cfg.BaseURL)
	}

	w, err := watcher.Watch(ctx, produce, cfg.Interval,
		newNotifier(cfg.Notifier, v.GetBool("force-notify")),
		watcher.WithEqual(model.Summary.Equal),
		watcher.WithDiff(summaryDiff(ctx)),
		watcher.WithTitle[model.Summary](appI18n.T(ctx, "DataChanged")),
	)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	slog.Info("watching assignments", "interval", cfg.Interval, "notifier", cfg.Notifier)

	<-ctx.Done()
	w.Stop()
	fmt.Println(report.SummaryTable(ctx, w.Data()))
	return nil
}

func linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <exam-master-id|url>",
		Short: "Print the shareable score link for an assignment",
		Args:  cobra.ExactArgs(1),
		RunE:  runLink,
	}
}

// examMasterArg accepts a bare id, a page path or a full page URL.
func examMasterArg(arg string) string {
	if u, err := url.Parse(arg); err == nil && u.Scheme != "" {
		arg = u.Path
	}
	return sharelink.ExamMasterIDFromPath(arg)
}

func runLink(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	id := examMasterArg(args[0])
	if id == "" {
		return fmt.Errorf("no exam-master id in %q", args[0])
	}

	cache := sharelink.NewCache(newClient(cfg))
	if err := cache.Rebuild(cmd.Context()); err != nil {
		return err
	}
	uuid, ok := cache.Lookup(id)
	if !ok {
		return fmt.Errorf("exam %s: %w", id, crowdmark.ErrNotFound)
	}
	fmt.Println(crowdmark.ScoreLink(cfg.BaseURL, uuid))
	return nil
}

func injectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Add the shareable link to a saved assignment page",
		Args:  cobra.NoArgs,
		RunE:  runInject,
	}
	f := cmd.Flags()
	f.String("file", "", "HTML file holding the assignment page (required)")
	f.String("path", "", "URL path of the page, e.g. /student/assignments/<id> (required)")
	f.Bool("watch", false, "Keep checking the file until interrupted")
	f.Duration("period", sharelink.DefaultPeriod, "Check period with --watch")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runInject(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()
	ctx = appI18n.WithLang(ctx, cfg.Lang)

	cache := sharelink.NewCache(newClient(cfg))
	if err := cache.Rebuild(ctx); err != nil {
		return err
	}
	inj := sharelink.NewInjector(cache, cfg.BaseURL, appI18n.T(ctx, "ShareableLink"))
	page := &sharelink.FilePage{Filename: v.GetString("file"), URLPath: v.GetString("path")}

	if v.GetBool("watch") {
		slog.Info("watching page", "file", page.Filename, "period", cfg.InjectPeriod)
		if err := inj.Run(ctx, page, cfg.InjectPeriod); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	added, err := inj.InstallOnce(page)
	if err != nil {
		return fmt.Errorf("inject link into %s: %w", page.Filename, err)
	}
	slog.Info("inject finished", "file", page.Filename, "added", added)
	return nil
}
