// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/batchslot/scheduler/sched"
	"github.com/batchslot/scheduler/sched/memmodel"
)

var (
	prompt          string
	maxTokens       int
	numSlots        int
	maxRuntimeBatch int
	logLevel        string
	stop            []string
	globalStop      []string
)

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Demo driver for the batched inference scheduler",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Admit one prompt against the in-memory reference model and stream its output",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		setting := sched.DefaultSetting()
		setting.NumSlots = numSlots
		setting.MaxRuntimeBatch = maxRuntimeBatch
		setting.Stop = globalStop
		if err := setting.Validate(); err != nil {
			logrus.WithError(err).Fatal("invalid setting")
		}

		tok := memmodel.Tokenizer{}
		model := memmodel.NewRuntime(setting.MaxRuntimeBatch, setting.MaxRuntimeBatch)
		state := memmodel.NewState(setting.MaxRuntimeBatch)
		facade := sched.NewRuntimeFacade(sched.FamilyDense, tok, model, state, setting.MaxRuntimeBatch, setting.EmbedLayer)

		loop := sched.NewRunLoop(facade, setting, logrus.WithField("component", "runloop"))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		go func() {
			if err := loop.Run(ctx); err != nil && err != sched.ErrShutdown {
				logrus.WithError(err).Error("run loop exited")
			}
		}()

		req := &sched.GenerateRequest{
			PromptTokens: sched.NewTokenSequence(tok.Encode(prompt)...),
			Stop:         stop,
			MaxTokens:    maxTokens,
			Sampler:      memmodel.NewGreedySampler(0.2, 0.1, 0.98),
		}
		sink := sched.NewEventSink(32)
		gctx := sched.NewGenerateContext(req, sink)

		if err := loop.Submit(ctx, gctx); err != nil {
			logrus.WithError(err).Fatal("submit failed")
		}

		for ev := range sink.Recv() {
			switch ev.Kind {
			case sched.EventToken:
				fmt.Print(ev.Text)
			case sched.EventStop:
				fmt.Printf("\n[done: %s, tokens=%d]\n", ev.Reason, ev.Counter.CompletionTokens)
				return
			}
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&prompt, "prompt", "hello", "Prompt text to admit")
	runCmd.Flags().IntVar(&maxTokens, "max-tokens", 16, "Maximum completion tokens")
	runCmd.Flags().IntVar(&numSlots, "num-slots", 16, "Size of the run loop's submission buffer")
	runCmd.Flags().IntVar(&maxRuntimeBatch, "max-runtime-batch", 8, "Runtime batch rows")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringSliceVar(&stop, "stop", nil, "Stop strings")
	runCmd.Flags().StringSliceVar(&globalStop, "global-stop", nil, "Process-wide stop strings applied to every request")

	rootCmd.AddCommand(runCmd)
}
