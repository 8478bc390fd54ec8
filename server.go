// Package colorcast is a real-time overlay server: every video frame a peer
// sends comes back with a colored shape drawn over it, and the color follows
// the peer's data channel messages.
package colorcast

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/pion/ice/v2"
	"github.com/pion/interceptor"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"
	"github.com/shynome/colorcast/codec"
	"github.com/shynome/colorcast/endpoint"
	"github.com/shynome/colorcast/mux"
	"github.com/shynome/colorcast/overlay"
	"github.com/shynome/colorcast/session"
	"github.com/shynome/colorcast/signaler"
)

var (
	ErrNegotiation  = errors.New("colorcast: negotiation failed")
	ErrNoVideoCodec = codec.ErrNoVideoCodec

	errNotOffer       = errors.New("description is not an offer")
	errNoVideoSection = errors.New("offer has no video section")
	errICEFailed      = errors.New("ice connection failed")
)

const DefaultGatherTimeout = 10 * time.Second

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option                { return func(s *Server) { s.log = l } }
func WithColor(c overlay.Color) Option                  { return func(s *Server) { s.color = c } }
func WithObserver(fn func(session.Event)) Option        { return func(s *Server) { s.observer = fn } }
func WithICEServers(servers ...webrtc.ICEServer) Option { return func(s *Server) { s.iceServers = servers } }
func WithUDPPort(port uint16) Option                    { return func(s *Server) { s.udpPort = port } }
func WithGatherTimeout(d time.Duration) Option          { return func(s *Server) { s.gatherTimeout = d } }

// WithICETimeouts sets how long a silent peer stays connected and then
// disconnected before its session fails, and the keepalive interval.
func WithICETimeouts(disconnected, failed, keepAlive time.Duration) Option {
	return func(s *Server) { s.iceTimeouts = &[3]time.Duration{disconnected, failed, keepAlive} }
}

type Server struct {
	api      *webrtc.API
	mux      ice.UDPMux
	videos   *codec.VideoSet
	registry *session.Registry

	overlay       overlay.Config
	color         overlay.Color
	iceServers    []webrtc.ICEServer
	udpPort       uint16
	gatherTimeout time.Duration
	iceTimeouts   *[3]time.Duration
	observer      func(session.Event)
	log           zerolog.Logger

	channelsL sync.Mutex
	channels  []signaler.Channel

	done   chan struct{}
	closeL sync.Once
}

// NewServer registers every codec in videos with a pion media engine and,
// when a UDP port is set, binds all ICE traffic to it.
func NewServer(cfg overlay.Config, videos *codec.VideoSet, opts ...Option) (s *Server, err error) {
	defer err2.Handle(&err)

	s = &Server{
		videos:        videos,
		overlay:       cfg,
		gatherTimeout: DefaultGatherTimeout,
		log:           zerolog.Nop(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "server").Logger()
	s.registry = session.NewRegistry(s.log)

	m := &webrtc.MediaEngine{}
	for _, mime := range videos.MimeTypes() {
		params, ok := endpoint.Parameters(mime)
		if !ok {
			return nil, fmt.Errorf("%w: no rtp parameters for %s", ErrNoVideoCodec, mime)
		}
		try.To(m.RegisterCodec(params, webrtc.RTPCodecTypeVideo))
	}
	i := &interceptor.Registry{}
	try.To(webrtc.RegisterDefaultInterceptors(m, i))

	settingEngine := webrtc.SettingEngine{}
	if t := s.iceTimeouts; t != nil {
		settingEngine.SetICETimeouts(t[0], t[1], t[2])
	}
	if s.udpPort != 0 && mux.WithUDPMux != nil {
		s.mux = try.To1(mux.WithUDPMux(&settingEngine, s.udpPort))
	}
	s.api = webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
		webrtc.WithSettingEngine(settingEngine),
	)

	s.log.Info().Strs("codecs", videos.Sorted()).Uint16("udp_port", s.udpPort).
		Stringer("overlay", cfg).Msg("server ready")
	return s, nil
}

func (s *Server) Registry() *session.Registry { return s.registry }

// Negotiate answers offer and starts a session for the peer. The session is
// registered before the peer connection exists, so a failure anywhere
// deregisters it again.
func (s *Server) Negotiate(ctx context.Context, offer webrtc.SessionDescription) (answer *webrtc.SessionDescription, err error) {
	var sess *session.Session
	defer func() {
		if err == nil {
			return
		}
		if sess != nil {
			sess.Fail(err)
		}
		err = fmt.Errorf("%w: %w", ErrNegotiation, err)
	}()
	defer err2.Handle(&err)

	video := try.To1(pickVideo(offer, s.videos))

	sess = session.New(s.overlay,
		session.WithLogger(s.log),
		session.WithColor(s.color),
		session.WithObserver(s.observer),
	)
	try.To(s.registry.Add(sess))
	try.To(sess.Transition(session.StateConnecting))

	pc := try.To1(s.api.NewPeerConnection(webrtc.Configuration{
		ICEServers: s.iceServers,
	}))
	try.To(sess.Attach(pc))

	params, _ := endpoint.Parameters(video.MimeType())
	out := try.To1(webrtc.NewTrackLocalStaticRTP(params.RTPCodecCapability, "video", "colorcast-"+sess.ID()))
	sender := try.To1(pc.AddTrack(out))
	go endpoint.DrainRTCP(sender)

	enc := try.To1(video.NewEncoder())
	sink, err := endpoint.NewTrackSink(out, video.MimeType(), enc)
	if err != nil {
		enc.Close()
		return nil, err
	}
	try.To(sess.SetSink(sink))

	log := s.log.With().Str("session", sess.ID()).Logger()
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeVideo {
			log.Debug().Stringer("kind", track.Kind()).Msg("ignoring track")
			return
		}
		if err := s.bindTrack(sess, pc, track); err != nil {
			log.Warn().Err(err).Str("codec", track.Codec().MimeType).Msg("bind track")
		}
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Debug().Str("label", dc.Label()).Msg("data channel opened")
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if !msg.IsString {
				log.Warn().Int("bytes", len(msg.Data)).Msg("dropping binary control message")
				return
			}
			sess.HandleControl(msg.Data)
		})
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			if err := sess.Transition(session.StateConnected); err != nil {
				log.Debug().Err(err).Msg("connected")
				return
			}
			log.Info().Str("remote", endpoint.RemoteAddr(pc)).Msg("peer connected")
		case webrtc.PeerConnectionStateFailed:
			sess.Fail(errICEFailed)
		case webrtc.PeerConnectionStateClosed:
			sess.Close()
		}
	})

	gctx, cancel := context.WithTimeout(ctx, s.gatherTimeout)
	defer cancel()
	answer = try.To1(endpoint.Answer(gctx, pc, offer))
	log.Debug().Str("codec", video.MimeType()).Msg("offer answered")
	return answer, nil
}

// bindTrack starts the transform loop on track, replacing the loop of any
// earlier video track of the same peer.
func (s *Server) bindTrack(sess *session.Session, pc *webrtc.PeerConnection, track *webrtc.TrackRemote) (err error) {
	defer err2.Handle(&err)

	c := track.Codec()
	video, ok := s.videos.Lookup(c.MimeType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoVideoCodec, c.MimeType)
	}
	dec := try.To1(video.NewDecoder())
	src, err := endpoint.NewTrackSource(track, c.MimeType, c.ClockRate, dec)
	if err != nil {
		dec.Close()
		return err
	}
	try.To(sess.Bind(src))
	if err := endpoint.RequestKeyFrame(pc, track.SSRC()); err != nil {
		s.log.Debug().Err(err).Str("session", sess.ID()).Msg("request key frame")
	}
	return nil
}

// pickVideo returns the first codec of the offer's video sections that the
// server can decode.
func pickVideo(offer webrtc.SessionDescription, videos *codec.VideoSet) (codec.Video, error) {
	if offer.Type != webrtc.SDPTypeOffer {
		return nil, fmt.Errorf("%w: %s", errNotOffer, offer.Type)
	}
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(offer.SDP)); err != nil {
		return nil, err
	}
	hasVideo := false
	for _, md := range desc.MediaDescriptions {
		if md.MediaName.Media != "video" {
			continue
		}
		hasVideo = true
		for _, format := range md.MediaName.Formats {
			pt, err := strconv.ParseUint(format, 10, 8)
			if err != nil {
				continue
			}
			c, err := desc.GetCodecForPayloadType(uint8(pt))
			if err != nil {
				continue
			}
			if video, ok := videos.Lookup("video/" + c.Name); ok {
				return video, nil
			}
		}
	}
	if !hasVideo {
		return nil, errNoVideoSection
	}
	return nil, fmt.Errorf("%w: none of the offered codecs", ErrNoVideoCodec)
}

// Serve answers every offer ch delivers until ch runs dry or the server is
// closed. ch is closed along with the server.
func (s *Server) Serve(ch signaler.Channel) error {
	offers, err := ch.Accept()
	if err != nil {
		return err
	}
	s.channelsL.Lock()
	select {
	case <-s.done:
		s.channelsL.Unlock()
		return ch.Close()
	default:
	}
	s.channels = append(s.channels, ch)
	s.channelsL.Unlock()

	for {
		select {
		case sess, ok := <-offers:
			if !ok {
				return nil
			}
			go s.handleConnect(sess)
		case <-s.done:
			return nil
		}
	}
}

func (s *Server) handleConnect(sig signaler.Session) {
	ctx := context.Background()
	if c, ok := sig.(context.Context); ok {
		ctx = c
	}
	answer, err := s.Negotiate(ctx, sig.Description())
	if err != nil {
		s.log.Warn().Err(err).Msg("rejecting offer")
		sig.Reject(err)
		return
	}
	if err := sig.Resolve(answer); err != nil {
		s.log.Warn().Err(err).Msg("deliver answer")
	}
}

// Close stops accepting offers and closes every session, returning after all
// of them released their peer connections.
func (s *Server) Close() error {
	var errs []error
	s.closeL.Do(func() {
		close(s.done)

		s.channelsL.Lock()
		channels := s.channels
		s.channels = nil
		s.channelsL.Unlock()
		for _, ch := range channels {
			if err := ch.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.registry.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		if s.mux != nil {
			if err := s.mux.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
