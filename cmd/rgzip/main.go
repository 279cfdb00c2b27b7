// Command rgzip decompresses gzip files to stdout, or to the single file
// named by -o, reporting progress and structured decode errors.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v2"

	"github.com/coreos/rgzip/capnslog"
	"github.com/coreos/rgzip/flagutil"
	"github.com/coreos/rgzip/gzip"
	"github.com/coreos/rgzip/stop"
	"github.com/coreos/rgzip/yamlutil"
)

var log = capnslog.NewPackageLogger("github.com/coreos/rgzip", "rgzip")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("rgzip", flag.ContinueOnError)
	out := fs.String("o", "", "write decompressed output to this file instead of stdout (only valid with one input)")
	configPath := fs.String("config", "", "optional YAML file providing defaults for unset flags")
	progress := fs.Bool("progress", false, "show a progress bar while decompressing")
	var levelFlag flagutil.LogLevelFlag
	fs.Var(&levelFlag, "v", "log level (CRITICAL, ERROR, INFO, DEBUG)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := yamlutil.SetFlagsFromYaml(fs, raw); err != nil {
			return fmt.Errorf("applying config: %w", err)
		}
	}

	capnslog.SetFormatter(capnslog.NewStringFormatter(os.Stderr))
	capnslog.MustRepoLogger("github.com/coreos/rgzip").SetGlobalLogLevel(levelFlag.Level())

	inputs := fs.Args()
	if len(inputs) == 0 {
		return decompressOne("-", os.Stdin, os.Stdout, *progress)
	}
	if len(inputs) > 1 && *out != "" {
		return fmt.Errorf("rgzip: -o may only be used with a single input file")
	}

	group := stop.NewGroup()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	cancel := make(chan struct{})
	group.AddFunc(func() <-chan struct{} {
		close(cancel)
		return stop.AlreadyDone
	})
	go func() {
		<-sigCh
		group.Stop()
	}()

	for _, name := range inputs {
		select {
		case <-cancel:
			return fmt.Errorf("rgzip: interrupted")
		default:
		}
		if err := decompressNamed(name, *out, *progress); err != nil {
			return err
		}
	}
	return nil
}

func decompressNamed(name, outPath string, showProgress bool) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("rgzip: opening %s: %w", name, err)
	}
	defer f.Close()

	var dst io.Writer = os.Stdout
	if outPath != "" {
		outFile, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("rgzip: creating %s: %w", outPath, err)
		}
		defer outFile.Close()
		dst = outFile
	}

	return decompressOne(name, f, dst, showProgress)
}

func decompressOne(name string, src io.Reader, dst io.Writer, showProgress bool) error {
	if showProgress {
		var size int64 = -1
		if f, ok := src.(*os.File); ok {
			if info, err := f.Stat(); err == nil {
				size = info.Size()
			}
		}
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetBytes64(size),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetPredictTime(size >= 0),
		)
		src = io.TeeReader(src, progressUpdater{bar})
		defer fmt.Fprintln(os.Stderr)
	}

	onMember := func(m gzip.MemberStats) {
		memberName := m.Name
		if memberName == "" {
			memberName = name
		}
		log.Infof("member %s: compressed=%d uncompressed=%d crc=%08x",
			memberName, m.CompressedBytes, m.UncompressedSize, m.CRC32)
	}
	onBlock := func(b gzip.BlockStats) {
		log.Debugf("%s: block %d final=%v", name, b.Index, b.Final)
	}

	if err := gzip.DecompressMembers(src, dst, onMember, onBlock); err != nil {
		log.Errorf("decompressing %s: %v", name, err)
		return fmt.Errorf("rgzip: decompressing %s: %w", name, err)
	}
	return nil
}

// progressUpdater adapts progressbar.ProgressBar's Add to io.Writer so it
// can sit behind an io.TeeReader counting compressed bytes consumed.
type progressUpdater struct {
	bar *progressbar.ProgressBar
}

func (p progressUpdater) Write(b []byte) (int, error) {
	p.bar.Add(len(b))
	return len(b), nil
}
