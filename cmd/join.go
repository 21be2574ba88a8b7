package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/musaddique333/Gatherly/internal/config"
	"github.com/musaddique333/Gatherly/internal/media"
	"github.com/musaddique333/Gatherly/internal/room"
	"github.com/musaddique333/Gatherly/internal/rtc"
	"github.com/musaddique333/Gatherly/internal/signaling"
	"github.com/musaddique333/Gatherly/internal/ui"
)

var (
	flagName     string
	flagHost     string
	flagInsecure bool
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a video room",
	Long: `Join a video room and connect to every participant in it.

Examples:
  gatherly join standup
  gatherly join standup --name alice
  gatherly join standup --host rooms.example.com --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	cfg, err := LoadConfig(config.Options{
		Host:       flagHost,
		Insecure:   flagInsecure,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return err
	}

	participantID := participantName()
	identity := room.Identity{RoomID: roomID, ParticipantID: participantID}

	linkFactory := func(onReady func(), onMessage func(*signaling.Message), onDown func(error)) room.Link {
		return signaling.NewLink(cfg.SignalingURL(roomID, participantID), onReady, onMessage, onDown)
	}

	// The UI is built after the session, so the event callbacks close over
	// this variable.
	var view *ui.RoomUI
	var peak, messages int

	events := room.Events{
		OnChat: func(msg room.ChatMessage) {
			messages++
			view.AppendChat(msg.From, msg.Message, msg.Timestamp)
		},
		OnTranscriptReplaced: func(entries []room.ChatMessage) {
			lines := make([]ui.ChatLine, len(entries))
			for i, e := range entries {
				lines[i] = ui.ChatLine{From: e.From, Text: e.Message, Timestamp: e.Timestamp}
			}
			messages = len(entries)
			view.ReplaceTranscript(lines)
		},
		OnParticipants: func(count int) {
			if count > peak {
				peak = count
			}
			view.SetParticipants(count)
		},
		OnRemoteStreamAttached: func(peer string, stream rtc.RemoteStream) {
			view.StreamAttached(peer, stream.Kind)
		},
		OnRemoteStreamDetached: func(peer string) {
			view.StreamDetached(peer)
		},
		OnMediaState: func(audio, video, sharing bool) {
			view.SetMediaState(audio, video, sharing)
		},
		OnNotice: func(text string) {
			view.Notice(text)
		},
		OnTerminal: func(err error) {
			view.Fail(err)
		},
	}

	sess := room.NewSession(
		identity,
		rtc.NewPionFactory(cfg),
		media.Synthetic(),
		linkFactory,
		events,
		room.Options{NegotiationTimeout: time.Duration(cfg.NegotiationTimeoutSec) * time.Second},
	)

	view = ui.NewRoomUI(roomID, participantID, sess)
	peak = 1

	start := time.Now()
	if err := sess.Join(); err != nil {
		return err
	}

	runErr := view.Run()
	sess.Leave()

	ui.RenderSessionSummary(fmt.Sprintf("%s Room Summary", ui.IconRoom), ui.SessionSummary{
		RoomID:       roomID,
		Participants: peak,
		Messages:     messages,
		Duration:     fmt.Sprintf("%.0f seconds", time.Since(start).Seconds()),
	})

	return runErr
}

// participantName uses the --name flag when given, otherwise a short random
// guest handle.
func participantName() string {
	if name := strings.TrimSpace(flagName); name != "" {
		return name
	}
	return "guest-" + uuid.NewString()[:8]
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, room.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name in the room")
	joinCmd.Flags().StringVarP(&flagHost, "host", "d", "", "Custom signaling server host")
	joinCmd.Flags().BoolVar(&flagInsecure, "insecure", false, "Use ws:// instead of wss://")
	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	joinCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	joinCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}
