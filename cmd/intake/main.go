// Command intake runs one complaint through the pipeline from local files and
// prints the resulting session as JSON.
//
//	intake -audio report.webm -encoding WEBM_OPUS -rate 48000 -image pothole.jpg -area "Ward 7" -city Pune
//	intake -transcript "bada gadda sadak par hai" -area "Ward 7" -city Pune
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/nagrik-sahayak/cmd/mainconfig"
	"github.com/wolfman30/nagrik-sahayak/internal/app/bootstrap"
	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

type options struct {
	audioPath  string
	encoding   string
	sampleRate int
	transcript string
	imagePath  string
	language   string
	area       string
	city       string
	timeout    time.Duration
}

type report struct {
	Session *intake.Session    `json:"session"`
	Result  *intake.Generation `json:"generation,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func main() {
	_ = godotenv.Load()
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr).WithComponent("intake_cli")

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	var awsCfg *aws.Config
	if cfg.VisionProvider == "bedrock" || cfg.TextProvider == "bedrock" {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	caps, err := bootstrap.BuildCapabilities(ctx, cfg, bootstrap.CapabilityDeps{AWS: awsCfg, Logger: logger})
	if err != nil {
		logger.Error("failed to build capabilities", "error", err)
		os.Exit(1)
	}
	defer caps.Close()

	out, runErr := runIntake(ctx, intake.NewPipeline(caps.PipelineConfig(logger, nil)), opts)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("intake", flag.ContinueOnError)
	fs.StringVar(&opts.audioPath, "audio", "", "path to the recorded complaint")
	fs.StringVar(&opts.encoding, "encoding", string(intake.AudioWebMOpus), "audio encoding (LINEAR16, FLAC, OGG_OPUS, WEBM_OPUS, MP3)")
	fs.IntVar(&opts.sampleRate, "rate", 48000, "audio sample rate in Hz")
	fs.StringVar(&opts.transcript, "transcript", "", "use this text instead of transcribing audio")
	fs.StringVar(&opts.imagePath, "image", "", "optional photo of the issue")
	fs.StringVar(&opts.language, "lang", intake.DefaultLanguage, "BCP-47 language of the speech")
	fs.StringVar(&opts.area, "area", "", "area or ward")
	fs.StringVar(&opts.city, "city", "", "city")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if (opts.audioPath == "") == (opts.transcript == "") {
		return options{}, errors.New("exactly one of -audio or -transcript is required")
	}
	return opts, nil
}

func runIntake(ctx context.Context, pipeline *intake.Pipeline, opts options) (report, error) {
	var img *intake.Image
	if opts.imagePath != "" {
		data, err := os.ReadFile(opts.imagePath)
		if err != nil {
			return report{Error: err.Error()}, err
		}
		img = &intake.Image{Data: data, MIMEType: http.DetectContentType(data)}
	}
	loc := intake.Location{Area: opts.area, City: opts.city}

	var (
		session *intake.Session
		gen     intake.Generation
		err     error
	)
	if opts.transcript != "" {
		session, gen, err = runTranscript(ctx, pipeline, opts, loc, img)
	} else {
		var audio []byte
		audio, err = readFile(opts.audioPath)
		if err != nil {
			return report{Error: err.Error()}, err
		}
		session, gen, err = pipeline.Run(ctx, intake.RunInput{
			Language: opts.language,
			Location: loc,
			Speech: intake.SpeechInput{
				Language:     opts.language,
				Audio:        audio,
				Encoding:     intake.AudioEncoding(opts.encoding),
				SampleRateHz: opts.sampleRate,
			},
			Image: img,
		})
	}

	out := report{Session: session}
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	out.Result = &gen
	return out, nil
}

func runTranscript(ctx context.Context, pipeline *intake.Pipeline, opts options, loc intake.Location, img *intake.Image) (*intake.Session, intake.Generation, error) {
	s := intake.NewSession(opts.language, loc)
	if _, err := pipeline.CaptureTranscript(ctx, s, opts.transcript); err != nil {
		return s, intake.Generation{}, err
	}
	if img != nil {
		if _, err := pipeline.AttachImage(ctx, s, *img); err != nil {
			return s, intake.Generation{}, err
		}
	}
	gen, err := pipeline.Finalize(ctx, s)
	return s, gen, err
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
