package teamsl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	sessionCookieName   = "SESSION"
	invalidLoginMarker  = "Die Kombination aus Benutzername und Passwort ist nicht bekannt!"
	endpointLogin       = "login"
	endpointUserContext = "user_context"
)

// Session is an authenticated upstream session. It is safe to share between
// concurrent reads and is never stored globally.
type Session struct {
	Cookie    string
	LoginName string
	CreatedAt time.Time
}

type Identity struct {
	LoginName string `json:"loginName"`
}

type userContextResponse struct {
	Data *Identity `json:"data"`
}

// Authenticate logs in with form credentials and verifies the new session.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, &AuthError{Reason: "credentials are not configured"}
	}
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login.do?reqCode=login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(ctx, endpointLogin, req)
	if err != nil {
		return nil, &AuthError{Reason: "login request failed", Err: err}
	}
	if resp.status >= 400 {
		return nil, &AuthError{Reason: fmt.Sprintf("login rejected with http %d", resp.status)}
	}
	if strings.Contains(string(resp.body), invalidLoginMarker) {
		return nil, &AuthError{Reason: "invalid username or password"}
	}
	cookie := pickSessionCookie(resp.header.Values("Set-Cookie"))
	if cookie == "" {
		return nil, &AuthError{Reason: "no session cookie received"}
	}

	sess := &Session{Cookie: cookie, CreatedAt: c.now().UTC()}
	ident, err := c.VerifySession(ctx, sess)
	if err != nil {
		return nil, err
	}
	sess.LoginName = ident.LoginName
	c.logger.Info("teamsl login ok", zap.String("login", ident.LoginName))
	return sess, nil
}

// VerifySession confirms the session is live by reading the user context.
func (c *Client) VerifySession(ctx context.Context, sess *Session) (*Identity, error) {
	var out userContextResponse
	if _, err := c.doJSON(ctx, endpointUserContext, http.MethodGet, "/rest/user/lc", sess, nil, &out); err != nil {
		return nil, &AuthError{Reason: "session verification failed", Err: err}
	}
	if out.Data == nil || strings.TrimSpace(out.Data.LoginName) == "" {
		return nil, &AuthError{Reason: "session did not persist, user context has no loginName"}
	}
	return out.Data, nil
}

// EndSession drops the cookie. The portal has no logout endpoint worth calling.
func (c *Client) EndSession(sess *Session) {
	if sess == nil {
		return
	}
	sess.Cookie = ""
}

func pickSessionCookie(headers []string) string {
	for _, raw := range headers {
		kv := strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
		if strings.HasPrefix(kv, sessionCookieName+"=") {
			return kv
		}
	}
	return ""
}
