package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/megamake/roleplay/internal/app/wiring"
	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
	simapi "github.com/megamake/roleplay/internal/domains/sim/api"
	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	"github.com/megamake/roleplay/internal/platform/artifact"
	apperrors "github.com/megamake/roleplay/internal/platform/errors"
	"github.com/megamake/roleplay/internal/platform/logging"
)

func newTurnCmd(opts *globalOptions) *cobra.Command {
	var audioFiles []string
	var outDir string

	cmd := &cobra.Command{
		Use:   "turn --audio FILE [--audio FILE ...]",
		Short: "Run a conversation from recorded audio files",
		Long: `Run one session from pre-recorded audio files, one user turn per file, in order.
Each reply is printed and its audio written to --out as reply_NN.<ext>; the
transcript is written as transcript_YYYYMMDD-HHMMSS.txt.

A failed transcription or completion stops the run; the transcript so far is
still written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(audioFiles) == 0 {
				return apperrors.NewUsage("at least one --audio file is required")
			}
			cfg, err := opts.load(cmd, nil)
			if err != nil {
				return err
			}
			ctr, err := wiring.New(cfg, logging.New(cmd.ErrOrStderr(), cfg.Logging.Level))
			if err != nil {
				return err
			}
			return runTurns(cmd.Context(), ctr.Sim, audioFiles, outDir, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVar(&audioFiles, "audio", nil, "audio file for one user turn (repeatable, in order)")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for reply audio and the transcript")
	return cmd
}

func runTurns(ctx context.Context, sim simapi.API, files []string, outDir string, w io.Writer) error {
	out := artifact.Writer{Dir: outDir}

	start, err := sim.StartSession(simapp.StartSessionRequest{})
	if err != nil {
		return err
	}
	id := start.View.SessionID
	defer func() { _, _ = sim.EndSession(simapp.EndSessionRequest{SessionID: id, Reason: "cli"}) }()

	nurse := color.New(color.FgCyan, color.Bold)
	sam := color.New(color.FgYellow, color.Bold)
	warn := color.New(color.FgMagenta)

	var runErr error
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			runErr = apperrors.New(apperrors.KindIO, "failed to read audio file", err)
			break
		}

		res, err := sim.Turn(ctx, simapp.TurnRequest{
			SessionID: id,
			Audio: contractsim.AudioPayloadV1{
				Source:      contractsim.AudioSourceUpload,
				Filename:    filepath.Base(path),
				ContentType: mime.TypeByExtension(filepath.Ext(path)),
				Data:        data,
			},
		})
		r := res.Result

		if r.Turn > 0 {
			nurse.Fprint(w, contractsim.SpeakerUser+": ")
			fmt.Fprintln(w, r.UserText)
		}
		if r.AssistantText != "" {
			sam.Fprint(w, contractsim.SpeakerAssistant+": ")
			fmt.Fprintln(w, r.AssistantText)
		}
		for _, m := range r.Warnings {
			warn.Fprintln(w, "warning: "+m)
		}

		if len(r.Audio) > 0 {
			if _, werr := out.WriteReplyAudio(r.Turn, r.AudioMIME, r.Audio); werr != nil {
				runErr = werr
				break
			}
		}

		if err != nil {
			if apperrors.StageOf(err) == simapp.StageSynthesize {
				warn.Fprintln(w, "warning: reply has no audio: "+err.Error())
				continue
			}
			runErr = err
			break
		}
	}

	exp, err := sim.Export(simapp.ExportRequest{SessionID: id})
	switch {
	case err == nil:
		p, _, werr := out.WriteTranscript(exp.Export)
		if werr != nil {
			return werr
		}
		fmt.Fprintln(w, "transcript: "+p)
	case !apperrors.IsUsage(err):
		return err
	}
	return runErr
}
