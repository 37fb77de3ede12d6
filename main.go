package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/musegrab/musegrab/grab/app"

	_ "github.com/musegrab/musegrab/plugins/netease"
	_ "github.com/musegrab/musegrab/plugins/qqmusic"
)

var (
	versionName = ""
	commitSHA   = ""
	buildTime   = ""
)

func main() {
	configPath := flag.String("c", "config.ini", "config file")
	listJobs := flag.Int("jobs", 0, "list the N most recent jobs and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	buildInfo := app.BuildInfo{
		RuntimeVer: runtime.Version(),
		BinVersion: versionName,
		CommitSHA:  commitSHA,
		BuildTime:  buildTime,
		BuildArch:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	application, err := app.New(ctx, *configPath, buildInfo)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}
	defer func() { _ = application.Shutdown(context.Background()) }()

	if *listJobs > 0 {
		printJobs(ctx, application, *listJobs)
		return
	}

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: musegrab [-c config.ini] <url> [url ...]")
		os.Exit(2)
	}

	failed := false
	for _, url := range urls {
		job, err := application.Grab(ctx, url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", url, err)
			failed = true
			continue
		}
		fmt.Printf("job %d %s: %d downloaded, %d skipped, %d failed\n",
			job.ID, job.Status, job.Downloaded, job.Skipped, job.Failed)
		if job.Error != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", url, job.Error)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func printJobs(ctx context.Context, application *app.App, limit int) {
	recent, err := application.Repo.ListJobs(ctx, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list jobs:", err)
		os.Exit(1)
	}
	for _, job := range recent {
		fmt.Printf("%d\t%s\t%s %s/%s\t%dD %dS %dF\t%s\n",
			job.ID, job.CreatedAt.Format("2006-01-02 15:04"),
			job.Module, job.MediaType, job.MediaID,
			job.Downloaded, job.Skipped, job.Failed, job.Status)
	}
}
