package call

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/carelink/carelink/internal/socket"
	"github.com/carelink/carelink/internal/util"
)

// Session is the peer session for one active call. It owns the
// PeerConnection and the local media acquired for it; every exit path,
// including errors, releases that media.
type Session struct {
	appointmentID string
	selfID        string
	remoteID      string
	caller        bool
	sig           Signaler
	debug         *util.RingBuffer[DebugEntry]

	pc         *webrtc.PeerConnection
	mediaStop  func() // releases local capture; nil when receive-only
	onError    func(error)
	onClosed   func()

	mu           sync.Mutex
	audioMuted   bool
	videoMuted   bool
	savedAudio   webrtc.TrackLocal
	savedVideo   webrtc.TrackLocal
	pendingICE   []webrtc.ICECandidateInit
	remoteSet    bool
	hung         bool

	rtpPackets atomic.Int64
	hangupCh   chan struct{}
}

// SessionStatus is the live session view served by the gateway debug route.
type SessionStatus struct {
	AppointmentID string `json:"appointment_id"`
	RemoteID      string `json:"remote_id"`
	Caller        bool   `json:"caller"`
	PCState       string `json:"pc_state"`
	ICEState      string `json:"ice_state"`
	AudioMuted    bool   `json:"audio_muted"`
	VideoMuted    bool   `json:"video_muted"`
	RTPPackets    int64  `json:"rtp_packets"`
	LocalMedia    bool   `json:"local_media"`
}

func newSession(appointmentID, selfID, remoteID string, caller bool, sig Signaler,
	stunURL string, debug *util.RingBuffer[DebugEntry], onError func(error), onClosed func()) (*Session, error) {

	s := &Session{
		appointmentID: appointmentID,
		selfID:        selfID,
		remoteID:      remoteID,
		caller:        caller,
		sig:           sig,
		debug:         debug,
		onError:       onError,
		onClosed:      onClosed,
		hangupCh:      make(chan struct{}),
	}

	pc, mediaStop, err := initMediaPC(appointmentID, stunURL)
	if err != nil {
		// Media acquisition is scoped: nothing to release on this path
		// because initMediaPC cleans up after itself on error.
		return nil, fmt.Errorf("init peer connection: %w", err)
	}
	s.pc = pc
	s.mediaStop = mediaStop
	s.rememberLocalTracks()

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		s.sendSignal("ice", c.ToJSON())
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Printf("CALL [%s]: remote %s track %s", appointmentID, track.Kind(), track.ID())
		s.record("in", "track", track.Kind().String())
		go s.drainRemote(track)
	})

	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		s.record("in", "pc-state", st.String())
		switch st {
		case webrtc.PeerConnectionStateFailed:
			s.fail(fmt.Errorf("peer connection failed"))
		case webrtc.PeerConnectionStateClosed:
			s.Hangup()
		}
	})

	pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		if st == webrtc.ICEConnectionStateFailed {
			s.fail(fmt.Errorf("ice negotiation failed"))
		}
	})

	if caller {
		if err := s.sendOffer(); err != nil {
			s.release()
			return nil, err
		}
	}
	return s, nil
}

// AppointmentID identifies the call this session belongs to.
func (s *Session) AppointmentID() string { return s.appointmentID }

// HangupCh closes when the session ends, however it ends.
func (s *Session) HangupCh() <-chan struct{} { return s.hangupCh }

// Status reports the live state for the debug endpoint.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		AppointmentID: s.appointmentID,
		RemoteID:      s.remoteID,
		Caller:        s.caller,
		PCState:       s.pc.ConnectionState().String(),
		ICEState:      s.pc.ICEConnectionState().String(),
		AudioMuted:    s.audioMuted,
		VideoMuted:    s.videoMuted,
		RTPPackets:    s.rtpPackets.Load(),
		LocalMedia:    s.mediaStop != nil,
	}
}

func (s *Session) sendOffer() error {
	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	s.sendSignal("offer", offer)
	return nil
}

// sendSignal relays one SDP/ICE blob to the far side over the socket.
func (s *Session) sendSignal(kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("CALL [%s]: encode %s: %v", s.appointmentID, kind, err)
		return
	}
	s.record("out", kind, "")
	err = s.sig.Emit(socket.EvCallSignal, socket.CallSignal{
		AppointmentID: s.appointmentID,
		From:          s.selfID,
		To:            s.remoteID,
		Kind:          kind,
		Data:          data,
	})
	if err != nil {
		log.Printf("CALL [%s]: relay %s: %v", s.appointmentID, kind, err)
	}
}

// handleSignal processes an inbound offer/answer/ICE from the remote peer.
// Errors terminate the session through the structured error path.
func (s *Session) handleSignal(sig *socket.CallSignal) {
	s.record("in", sig.Kind, "")
	switch sig.Kind {
	case "offer":
		var offer webrtc.SessionDescription
		if err := json.Unmarshal(sig.Data, &offer); err != nil {
			s.fail(fmt.Errorf("decode offer: %w", err))
			return
		}
		if err := s.pc.SetRemoteDescription(offer); err != nil {
			s.fail(fmt.Errorf("set remote offer: %w", err))
			return
		}
		s.flushPendingICE()
		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			s.fail(fmt.Errorf("create answer: %w", err))
			return
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			s.fail(fmt.Errorf("set local answer: %w", err))
			return
		}
		s.sendSignal("answer", answer)

	case "answer":
		var answer webrtc.SessionDescription
		if err := json.Unmarshal(sig.Data, &answer); err != nil {
			s.fail(fmt.Errorf("decode answer: %w", err))
			return
		}
		if err := s.pc.SetRemoteDescription(answer); err != nil {
			s.fail(fmt.Errorf("set remote answer: %w", err))
			return
		}
		s.flushPendingICE()

	case "ice":
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(sig.Data, &cand); err != nil {
			log.Printf("CALL [%s]: dropping bad candidate: %v", s.appointmentID, err)
			return
		}
		s.mu.Lock()
		ready := s.remoteSet
		if !ready {
			// Candidates can outrun the SDP they belong to; hold them
			// until the remote description lands.
			s.pendingICE = append(s.pendingICE, cand)
		}
		s.mu.Unlock()
		if ready {
			if err := s.pc.AddICECandidate(cand); err != nil {
				log.Printf("CALL [%s]: add candidate: %v", s.appointmentID, err)
			}
		}

	default:
		log.Printf("CALL [%s]: unknown signal kind %q", s.appointmentID, sig.Kind)
	}
}

func (s *Session) flushPendingICE() {
	s.mu.Lock()
	s.remoteSet = true
	pending := s.pendingICE
	s.pendingICE = nil
	s.mu.Unlock()
	for _, cand := range pending {
		if err := s.pc.AddICECandidate(cand); err != nil {
			log.Printf("CALL [%s]: add buffered candidate: %v", s.appointmentID, err)
		}
	}
}

// ToggleAudio flips the local audio mute. Returns the new muted state.
// Muting replaces the outgoing track with nil; no renegotiation needed.
func (s *Session) ToggleAudio() bool {
	s.mu.Lock()
	s.audioMuted = !s.audioMuted
	muted := s.audioMuted
	s.mu.Unlock()
	s.setKindMuted(webrtc.RTPCodecTypeAudio, muted)
	log.Printf("CALL [%s]: audio muted=%v", s.appointmentID, muted)
	return muted
}

// ToggleVideo flips the local video mute. Returns the new muted state.
func (s *Session) ToggleVideo() bool {
	s.mu.Lock()
	s.videoMuted = !s.videoMuted
	muted := s.videoMuted
	s.mu.Unlock()
	s.setKindMuted(webrtc.RTPCodecTypeVideo, muted)
	log.Printf("CALL [%s]: video muted=%v", s.appointmentID, muted)
	return muted
}

// rememberLocalTracks stores the original outgoing tracks so mute can swap
// them back in later.
func (s *Session) rememberLocalTracks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sender := range s.pc.GetSenders() {
		track := sender.Track()
		if track == nil {
			continue
		}
		switch track.Kind() {
		case webrtc.RTPCodecTypeAudio:
			s.savedAudio = track
		case webrtc.RTPCodecTypeVideo:
			s.savedVideo = track
		}
	}
}

func (s *Session) setKindMuted(kind webrtc.RTPCodecType, muted bool) {
	s.mu.Lock()
	saved := s.savedAudio
	if kind == webrtc.RTPCodecTypeVideo {
		saved = s.savedVideo
	}
	s.mu.Unlock()
	if saved == nil {
		return // receive-only session, nothing to mute
	}

	for _, sender := range s.pc.GetSenders() {
		track := sender.Track()
		if muted {
			if track != nil && track.Kind() == kind {
				if err := sender.ReplaceTrack(nil); err != nil {
					log.Printf("CALL [%s]: mute %s: %v", s.appointmentID, kind, err)
				}
			}
		} else if track == nil {
			// Restore onto the sender we emptied. Kind is checked against
			// the saved track, not the (nil) current one.
			if err := sender.ReplaceTrack(saved); err == nil {
				return
			}
		}
	}
}

func (s *Session) drainRemote(track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
		s.rtpPackets.Add(1)
	}
}

// fail terminates the session through the structured error channel. Local
// media is released before the error surfaces.
func (s *Session) fail(err error) {
	s.mu.Lock()
	alreadyHung := s.hung
	s.mu.Unlock()
	if alreadyHung {
		return
	}
	log.Printf("CALL [%s]: %v", s.appointmentID, err)
	s.Hangup()
	if s.onError != nil {
		s.onError(err)
	}
}

// Hangup tears down this session and releases all local media. Idempotent,
// safe against decline/hangup races.
func (s *Session) Hangup() {
	s.mu.Lock()
	if s.hung {
		s.mu.Unlock()
		return
	}
	s.hung = true
	s.mu.Unlock()

	s.release()
	close(s.hangupCh)
	if s.onClosed != nil {
		s.onClosed()
	}
	log.Printf("CALL [%s]: session closed", s.appointmentID)
}

// release stops local capture and closes the PeerConnection. Runs on every
// exit path, including constructor failures.
func (s *Session) release() {
	s.mu.Lock()
	stop := s.mediaStop
	s.mediaStop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	if s.pc != nil {
		if err := s.pc.Close(); err != nil {
			log.Printf("CALL [%s]: close pc: %v", s.appointmentID, err)
		}
	}
}

func (s *Session) record(dir, kind, detail string) {
	if s.debug == nil {
		return
	}
	s.debug.Push(DebugEntry{
		At:            time.Now(),
		AppointmentID: s.appointmentID,
		Dir:           dir,
		Kind:          kind,
		Detail:        detail,
	})
}
