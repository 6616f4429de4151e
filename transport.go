package genui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/golang/glog"
)

// streams the protocol over a websocket to an agent endpoint:
// server messages in, user action messages out. the transport reconnects
// forever until its context is canceled; the surface state survives
// reconnects because the registry owns it, not the connection

const TransportBufferSize = 32

type SessionAuth struct {
	// signed elsewhere; the transport sends it as-is and only reads claims
	ByJwt      string
	InstanceId Id
	AppVersion string
}

type SessionClaims struct {
	UserId    Id
	SessionId Id
}

func ParseSessionJwtUnverified(byJwt string) (*SessionClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(byJwt, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(jwt.MapClaims)

	sessionClaims := &SessionClaims{}
	if userIdStr, ok := claims["user_id"]; ok {
		if userId, err := ParseId(userIdStr.(string)); err == nil {
			sessionClaims.UserId = userId
		}
	}
	if sessionIdStr, ok := claims["session_id"]; ok {
		if sessionId, err := ParseId(sessionIdStr.(string)); err == nil {
			sessionClaims.SessionId = sessionId
		}
	}
	return sessionClaims, nil
}

type authEnvelope struct {
	ByJwt        string          `json:"byJwt"`
	InstanceId   Id              `json:"instanceId"`
	AppVersion   string          `json:"appVersion,omitempty"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
}

type ClientTransportSettings struct {
	WsHandshakeTimeout time.Duration
	AuthTimeout        time.Duration
	ReconnectTimeout   time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
}

func DefaultClientTransportSettings() *ClientTransportSettings {
	return &ClientTransportSettings{
		WsHandshakeTimeout: 2 * time.Second,
		AuthTimeout:        2 * time.Second,
		ReconnectTimeout:   5 * time.Second,
		PingTimeout:        1 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        15 * time.Second,
	}
}

type ClientTransport struct {
	ctx    context.Context
	cancel context.CancelFunc

	agentUrl string
	auth     *SessionAuth
	registry *SurfaceRegistry

	// advertised on every (re)connect, may be nil
	capabilities *ClientCapabilities

	settings *ClientTransportSettings
}

func NewClientTransportWithDefaults(
	ctx context.Context,
	agentUrl string,
	auth *SessionAuth,
	registry *SurfaceRegistry,
	capabilities *ClientCapabilities,
) *ClientTransport {
	return NewClientTransport(ctx, agentUrl, auth, registry, capabilities, DefaultClientTransportSettings())
}

func NewClientTransport(
	ctx context.Context,
	agentUrl string,
	auth *SessionAuth,
	registry *SurfaceRegistry,
	capabilities *ClientCapabilities,
	settings *ClientTransportSettings,
) *ClientTransport {
	cancelCtx, cancel := context.WithCancel(ctx)
	transport := &ClientTransport{
		ctx:          cancelCtx,
		cancel:       cancel,
		agentUrl:     agentUrl,
		auth:         auth,
		registry:     registry,
		capabilities: capabilities,
		settings:     settings,
	}
	go HandleError(transport.run, cancel)
	return transport
}

func (self *ClientTransport) run() {
	defer self.cancel()

	authBytes, err := self.authMessage()
	if err != nil {
		glog.Errorf("[ct]auth message error = %s\n", err)
		return
	}

	for {
		reconnect := NewReconnect(self.settings.ReconnectTimeout)
		connect := func() (*websocket.Conn, error) {
			dialer := &websocket.Dialer{
				HandshakeTimeout: self.settings.WsHandshakeTimeout,
			}
			ws, _, err := dialer.DialContext(self.ctx, self.agentUrl, nil)
			if err != nil {
				return nil, err
			}

			success := false
			defer func() {
				if !success {
					ws.Close()
				}
			}()

			ws.SetWriteDeadline(time.Now().Add(self.settings.AuthTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, authBytes); err != nil {
				return nil, err
			}
			ws.SetReadDeadline(time.Now().Add(self.settings.AuthTimeout))
			if messageType, message, err := ws.ReadMessage(); err != nil {
				return nil, err
			} else {
				// the agent echoes the auth to accept the session
				switch messageType {
				case websocket.TextMessage:
					if string(authBytes) != string(message) {
						return nil, fmt.Errorf("auth response error: bad echo")
					}
				default:
					return nil, fmt.Errorf("auth response error")
				}
			}

			success = true
			return ws, nil
		}

		ws, err := connect()
		if err != nil {
			glog.Infof("[ct]auth error = %s\n", err)
			select {
			case <-self.ctx.Done():
				return
			case <-reconnect.After():
				continue
			}
		}

		self.handle(ws)

		select {
		case <-self.ctx.Done():
			return
		case <-reconnect.After():
		}
	}
}

func (self *ClientTransport) authMessage() ([]byte, error) {
	envelope := &authEnvelope{
		ByJwt:      self.auth.ByJwt,
		InstanceId: self.auth.InstanceId,
		AppVersion: self.auth.AppVersion,
	}
	if self.capabilities != nil {
		capabilitiesBytes, err := EncodeClientCapabilities(self.capabilities)
		if err != nil {
			return nil, err
		}
		envelope.Capabilities = capabilitiesBytes
	}
	return json.Marshal(envelope)
}

func (self *ClientTransport) handle(ws *websocket.Conn) {
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	send := make(chan []byte, TransportBufferSize)

	removeUserMessageCallback, err := self.registry.AddUserMessageCallback(func(message *ClientMessage) {
		messageBytes, err := EncodeClientMessage(message)
		if err != nil {
			glog.Infof("[ct]encode user message error = %s\n", err)
			return
		}
		select {
		case send <- messageBytes:
		case <-handleCtx.Done():
		default:
			// backpressure. drop rather than block the interaction path
			glog.Infof("[ct]send buffer full, dropped user message\n")
		}
	})
	if err != nil {
		// the registry was torn down under the connection
		glog.Infof("[ct]attach error = %s\n", err)
		return
	}
	defer removeUserMessageCallback()

	// write
	go HandleError(func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			case messageBytes := <-send:
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.TextMessage, messageBytes); err != nil {
					// a websocket deadline timeout cannot be recovered
					glog.Infof("[ct]-> error = %s\n", err)
					return
				}
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					glog.Infof("[ct]-> ping error = %s\n", err)
					return
				}
			}
		}
	}, handleCancel)

	// read
	for {
		select {
		case <-handleCtx.Done():
			return
		default:
		}

		ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		messageType, messageBytes, err := ws.ReadMessage()
		if err != nil {
			glog.Infof("[ct]<- error = %s\n", err)
			return
		}
		switch messageType {
		case websocket.TextMessage:
			message, err := DecodeServerMessage(messageBytes)
			if err != nil {
				glog.Infof("[ct]<- bad message = %s\n", err)
				continue
			}
			if err := self.registry.Dispatch(message); err != nil {
				glog.Infof("[ct]<- dispatch error = %s\n", err)
			}
		default:
			// ignore binary frames
		}
	}
}

func (self *ClientTransport) Close() {
	self.cancel()
}
