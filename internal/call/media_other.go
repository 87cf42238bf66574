//go:build !linux || !cgo

package call

import (
	"log"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// initMediaPC creates a receive-only PeerConnection on non-Linux platforms.
// Camera/mic capture via pion/mediadevices needs platform drivers (V4L2 and
// malgo on Linux); elsewhere the embedding UI supplies media itself.
func initMediaPC(appointmentID, stunURL string) (*webrtc.PeerConnection, func(), error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, nil, err
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, nil, err
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	)

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{stunURL}},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	addRecvOnlyTransceivers(appointmentID, pc)

	log.Printf("CALL [%s]: peer connection ready (receive-only on this platform)", appointmentID)
	return pc, nil, nil
}
