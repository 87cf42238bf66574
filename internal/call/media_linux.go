//go:build linux && cgo

package call

import (
	"log"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
)

// initMediaPC creates the PeerConnection with VP8+Opus codecs and attempts
// to capture local camera/mic via pion/mediadevices (V4L2 + malgo on Linux).
// Returns the PC and a cleanup func that releases local capture (nil when
// the session ended up receive-only).
func initMediaPC(appointmentID, stunURL string) (*webrtc.PeerConnection, func(), error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, nil, err
	}
	vpxParams.BitRate = 1_500_000 // 1.5 Mbps

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, nil, err
	}

	codecSelector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	mediaEngine := &webrtc.MediaEngine{}
	codecSelector.Populate(mediaEngine)

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, nil, err
	}

	// Generous ICE timeouts so a brief relay/NAT hiccup does not immediately
	// terminate the consultation. The default disconnectedTimeout of 5s is
	// too short for relay paths with short outages during re-keying.
	se := webrtc.SettingEngine{}
	se.SetICETimeouts(30*time.Second, 120*time.Second, 2*time.Second)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
		webrtc.WithSettingEngine(se),
	)

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{stunURL}},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	// GetUserMedia fails as a unit if either track (video OR audio) can't be
	// opened. Try video+audio first, then video-only, then audio-only so a
	// missing or busy microphone doesn't prevent the camera from working and
	// vice versa.
	type attempt struct {
		video bool
		audio bool
		label string
	}
	for _, a := range []attempt{
		{true, true, "video+audio"},
		{true, false, "video-only"},
		{false, true, "audio-only"},
	} {
		constraints := mediadevices.MediaStreamConstraints{Codec: codecSelector}
		if a.video {
			constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
				// Exclude MJPEG — some cameras expose an MJPEG V4L2 node that
				// produces malformed frames and poisons the VP8 encoder.
				c.FrameFormat = prop.FrameFormatOneOf{
					frame.FormatYUYV,
					frame.FormatI420,
					frame.FormatI444,
					frame.FormatRGBA,
				}
				c.Width = prop.IntRanged{Max: 640}
				c.Height = prop.IntRanged{Max: 480}
			}
		}
		if a.audio {
			constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
		}

		stream, err := mediadevices.GetUserMedia(constraints)
		if err != nil {
			log.Printf("CALL [%s]: GetUserMedia (%s) failed: %v", appointmentID, a.label, err)
			continue
		}

		tracks := stream.GetTracks()
		for _, track := range tracks {
			track.OnEnded(func(err error) {
				if err != nil {
					log.Printf("CALL [%s]: local track ended: %v", appointmentID, err)
				}
			})
			if _, err := pc.AddTrack(track); err != nil {
				log.Printf("CALL [%s]: AddTrack error: %v", appointmentID, err)
			}
		}

		log.Printf("CALL [%s]: local media captured (%s) — %d tracks", appointmentID, a.label, len(tracks))
		closeFn := func() {
			for _, t := range tracks {
				t.Close()
			}
		}
		return pc, closeFn, nil
	}

	// All attempts failed — fall back to receive-only so the consultation
	// can still show the remote side without local camera/mic.
	log.Printf("CALL [%s]: all media capture attempts failed — proceeding receive-only", appointmentID)
	addRecvOnlyTransceivers(appointmentID, pc)
	return pc, nil, nil
}
