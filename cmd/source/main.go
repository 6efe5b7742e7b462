// Command source drives a synthetic pixel source through a Stream: it
// opens a session, streams a moving-bar test pattern at a fixed rate,
// and registers for events to print whatever the wall server sends back.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/client"
	"github.com/wallstream/pixelstream/internal/image"
	"github.com/wallstream/pixelstream/pkg/logger"
)

type sourceOptions struct {
	host       string
	port       int
	id         string
	width      int
	height     int
	fps        float64
	frames     int
	compress   bool
	quality    int
	listen     bool
	useWS      bool
}

func main() {
	opts := &sourceOptions{}

	cmd := &cobra.Command{
		Use:   "source",
		Short: "Stream a synthetic test pattern to a wall server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSource(opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "127.0.0.1", "wall server host")
	cmd.Flags().IntVar(&opts.port, "port", 1701, "wall server port")
	cmd.Flags().StringVar(&opts.id, "uri", "source/demo", "stream URI")
	cmd.Flags().IntVar(&opts.width, "width", 1280, "source width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 720, "source height in pixels")
	cmd.Flags().Float64Var(&opts.fps, "fps", 10, "frames per second")
	cmd.Flags().IntVar(&opts.frames, "frames", 0, "frame count to send, 0 for unlimited")
	cmd.Flags().BoolVar(&opts.compress, "compress", true, "JPEG-compress segments before sending")
	cmd.Flags().IntVar(&opts.quality, "quality", 80, "JPEG quality (1-100)")
	cmd.Flags().BoolVar(&opts.listen, "events", true, "register for server-pushed events")
	cmd.Flags().BoolVar(&opts.useWS, "websocket", false, "use the WebSocket transport instead of TCP")

	if err := cmd.Execute(); err != nil {
		logger.L().Sugar().Fatal(err)
	}
}

func runSource(opts *sourceOptions) error {
	log := logger.Named("source")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	s, err := client.Open(ctx, opts.id, opts.host, opts.port, &client.Options{
		UseWebSocket: opts.useWS,
	})
	if err != nil {
		return fmt.Errorf("source: open stream: %w", err)
	}
	defer s.Close()

	if opts.listen {
		if err := s.RegisterForEvents(false); err != nil {
			log.Warn("event registration failed", zap.Error(err))
		} else {
			go printEvents(ctx, s)
		}
	}

	period := time.Second
	if opts.fps > 0 {
		period = time.Duration(float64(time.Second) / opts.fps)
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	phase := 0
	for i := 0; opts.frames == 0 || i < opts.frames; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		img := movingBarFrame(uint32(opts.width), uint32(opts.height), phase, opts.compress, opts.quality)
		phase++

		ack, err := s.SendAndFinish(img)
		if err != nil {
			return fmt.Errorf("source: send frame %d: %w", i, err)
		}
		if err := ack.Wait(); err != nil {
			return fmt.Errorf("source: frame %d not acknowledged: %w", i, err)
		}
	}
	return nil
}

func printEvents(ctx context.Context, s *client.Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ev, ok := s.GetEvent()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		fmt.Printf("event: kind=%d x=%.3f y=%.3f text=%q\n", ev.Kind, ev.X, ev.Y, ev.Text)
	}
}

// movingBarFrame renders a vertical bar sweeping across the frame at the
// given phase, in BGRA, so cmd/wallstub has something visibly changing to
// confirm segmentation and frame order against.
func movingBarFrame(width, height uint32, phase int, compressed bool, quality int) image.Source {
	data := make([]byte, int(width)*int(height)*4)
	barX := uint32(phase*8) % width
	r := byte(rand.Intn(32))
	for y := uint32(0); y < height; y++ {
		row := data[y*width*4 : (y+1)*width*4]
		for x := uint32(0); x < width; x++ {
			px := row[x*4 : x*4+4]
			if x >= barX && x < barX+40 {
				px[0], px[1], px[2], px[3] = 0, 0, 255, 255 // BGRA red bar
			} else {
				px[0], px[1], px[2], px[3] = r, r, r, 255
			}
		}
	}
	return image.Source{
		Data:                data,
		Width:               width,
		Height:              height,
		Format:              image.BGRA,
		Order:               image.TopDown,
		CompressionPolicy:   compressed,
		CompressionQuality:  quality,
		Subsampling:         image.Subsample420,
	}
}
