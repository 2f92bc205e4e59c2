package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"contentstudio/pkg/client"
)

func main() {
	var (
		apiFlag      string
		idFlag       string
		titleFlag    string
		descFlag     string
		audienceFlag string
		styleFlag    string
		toneFlag     string
		localeFlag   string
		servicesFlag string
		durationFlag int
		scenesFlag   int
		intervalFlag time.Duration
		timeoutFlag  time.Duration
		noWaitFlag   bool
	)

	flag.StringVar(&apiFlag, "api", envOr("CONTENT_API_URL", "http://localhost:8080"), "content studio API base URL")
	flag.StringVar(&idFlag, "id", "", "follow an existing content id instead of creating one")
	flag.StringVar(&titleFlag, "title", "", "video title")
	flag.StringVar(&descFlag, "description", "", "video description")
	flag.StringVar(&audienceFlag, "audience", "", "target audience")
	flag.StringVar(&styleFlag, "style", "Educational", "style (informative, entertaining, tutorial, educational)")
	flag.StringVar(&toneFlag, "tone", "", "optional narration tone")
	flag.StringVar(&localeFlag, "locale", "", "optional script language (en, id, es, fr, de, pt, ja)")
	flag.StringVar(&servicesFlag, "services", "content,image,voice,music,video", "comma separated generation steps to enable")
	flag.IntVar(&durationFlag, "duration", 60, "video length in seconds")
	flag.IntVar(&scenesFlag, "scenes", 3, "number of middle scenes")
	flag.DurationVar(&intervalFlag, "interval", client.DefaultPollInterval, "progress poll interval")
	flag.DurationVar(&timeoutFlag, "timeout", 30*time.Minute, "give up following after this long")
	flag.BoolVar(&noWaitFlag, "no-wait", false, "print the new id and exit without following progress")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(strings.TrimSpace(apiFlag))

	id := strings.TrimSpace(idFlag)
	if id == "" {
		services, err := parseServices(servicesFlag)
		if err != nil {
			exitWithError(err)
		}
		createCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		id, err = api.CreateContent(createCtx, client.CreateContentRequest{
			Title:          strings.TrimSpace(titleFlag),
			Description:    strings.TrimSpace(descFlag),
			TargetAudience: strings.TrimSpace(audienceFlag),
			Duration:       durationFlag,
			Style:          strings.TrimSpace(styleFlag),
			SceneAmount:    scenesFlag,
			Tone:           strings.TrimSpace(toneFlag),
			Locale:         strings.TrimSpace(localeFlag),
			Services:       services,
		})
		cancel()
		if err != nil {
			exitWithError(fmt.Errorf("create content: %w", err))
		}
		fmt.Fprintf(os.Stderr, "created %s\n", id)
		if noWaitFlag {
			fmt.Println(id)
			return
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeoutFlag)
	defer cancel()

	poller := client.NewPoller(api)
	poller.Interval = intervalFlag
	last := -1
	poller.OnUpdate = func(p client.Progress) {
		if p.ProgressPercentage == last && !p.Terminal() {
			return
		}
		last = p.ProgressPercentage
		step := "-"
		if p.CurrentStep != nil {
			step = *p.CurrentStep
		}
		fmt.Fprintf(os.Stderr, "%3d%%  %-10s  %s\n", p.ProgressPercentage, p.Status, step)
	}

	final, err := poller.Wait(waitCtx, id)
	if err != nil {
		var transient *client.TransientFetchError
		if errors.As(err, &transient) {
			exitWithError(fmt.Errorf("progress check failed, retry with -id %s: %w", id, transient.Err))
		}
		exitWithError(fmt.Errorf("follow %s: %w", id, err))
	}

	if final.Status == client.StatusError {
		msg, step := "unknown error", "unknown"
		if final.ErrorMessage != nil {
			msg = *final.ErrorMessage
		}
		if final.ErrorStep != nil {
			step = *final.ErrorStep
		}
		exitWithError(fmt.Errorf("generation failed at %s: %s", step, msg))
	}

	content, err := api.GetContent(ctx, id)
	if err != nil {
		exitWithError(fmt.Errorf("load content: %w", err))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(content); err != nil {
		exitWithError(err)
	}
}

func parseServices(raw string) (client.Services, error) {
	var s client.Services
	for _, name := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
		case "content", "script":
			s.ContentGeneration = true
		case "image":
			s.ImageGeneration = true
		case "voice":
			s.VoiceGeneration = true
		case "music":
			s.MusicGeneration = true
		case "video":
			s.VideoGeneration = true
		default:
			return s, fmt.Errorf("unknown service %q", name)
		}
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
