package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionContextKey = "photonix.session"

// Session identifies one browser. UserID is empty until the user logs in.
type Session struct {
	ID       string
	UserID   string
	Username string
}

// Authenticated reports whether a user is logged in on this session
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid,omitempty"`
	Username string `json:"usr,omitempty"`
}

// SessionManager issues and verifies signed session cookies
type SessionManager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionManager creates a session manager. An empty secret generates a
// random one, which invalidates sessions on restart.
func NewSessionManager(secret, cookieName string, ttl time.Duration, secure bool, logger *zap.Logger) *SessionManager {
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		logger.Warn("No session secret configured, sessions will not survive a restart")
	}
	return &SessionManager{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		logger:     logger,
		now:        time.Now,
	}
}

// Middleware attaches a Session to every request, issuing a new cookie when
// the request has no valid one.
func (m *SessionManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := m.read(c)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				m.logger.Debug("Discarding invalid session cookie", zap.Error(err))
			}
			session = &Session{ID: uuid.NewString()}
			if err := m.write(c, session); err != nil {
				m.logger.Error("Failed to issue session cookie", zap.Error(err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// Login binds the user to the current session
func (m *SessionManager) Login(c *gin.Context, userID, username string) error {
	session := &Session{ID: SessionID(c), UserID: userID, Username: username}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if err := m.write(c, session); err != nil {
		return err
	}
	c.Set(sessionContextKey, session)
	return nil
}

// Logout replaces the session with a fresh anonymous one
func (m *SessionManager) Logout(c *gin.Context) error {
	session := &Session{ID: uuid.NewString()}
	if err := m.write(c, session); err != nil {
		return err
	}
	c.Set(sessionContextKey, session)
	return nil
}

func (m *SessionManager) read(c *gin.Context) (*Session, error) {
	raw, err := c.Cookie(m.cookieName)
	if err != nil {
		return nil, err
	}
	claims := &sessionClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}
	return &Session{ID: claims.Subject, UserID: claims.UserID, Username: claims.Username}, nil
}

func (m *SessionManager) write(c *gin.Context, s *Session) error {
	now := m.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID:   s.UserID,
		Username: s.Username,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return nil
}

// SessionFrom returns the session attached by Middleware
func SessionFrom(c *gin.Context) *Session {
	if v, ok := c.Get(sessionContextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}

// SessionID returns the current session identifier, or "" outside Middleware
func SessionID(c *gin.Context) string {
	if s := SessionFrom(c); s != nil {
		return s.ID
	}
	return ""
}
