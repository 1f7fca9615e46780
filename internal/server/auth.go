package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/Veraticus/fieldwise/internal/auth"
	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/model"
)

const (
	sessionState     = "oauth_state"
	sessionAccountID = "account_id"
)

func sessionString(session sessions.Session, key string) string {
	v, _ := session.Get(key).(string)
	return v
}

func (s *Server) handleLogin(c *gin.Context) {
	state := auth.NewState()

	session := sessions.Default(c)
	session.Set(sessionState, state)
	if err := session.Save(); err != nil {
		common.LogError(err, "Failed to save session", nil)
		errorJSON(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	c.Redirect(http.StatusFound, s.opts.Auth.AuthCodeURL(state))
}

// handleCallback exchanges the code, remembers the account in the session and
// starts provisioning in the background before redirecting.
func (s *Server) handleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		errorJSON(c, http.StatusBadRequest, "No authorization code received")
		return
	}

	session := sessions.Default(c)
	expected := sessionString(session, sessionState)
	if expected == "" || c.Query("state") != expected {
		errorJSON(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	session.Delete(sessionState)

	ctx := c.Request.Context()
	token, err := s.opts.Auth.Exchange(ctx, code)
	if err != nil {
		common.LogError(err, "OAuth exchange failed", nil)
		errorJSON(c, http.StatusBadGateway, "Authentication failed")
		return
	}

	account, err := s.opts.Platform.Account(ctx, token.AccessToken)
	if err != nil {
		common.LogError(err, "Failed to fetch account after authorization", nil)
		errorJSON(c, http.StatusBadGateway, "Authentication failed")
		return
	}

	session.Set(sessionAccountID, account.ID)
	if err := session.Save(); err != nil {
		common.LogError(err, "Failed to save session", common.Fields{"account_id": account.ID})
		errorJSON(c, http.StatusInternalServerError, "session unavailable")
		return
	}

	s.opts.Provisioner.ProvisionAsync(token.AccessToken)
	common.LogInfo("Account authorized", common.Fields{"account_id": account.ID, "industry": account.Industry})

	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleStatus(c *gin.Context) {
	accountID := sessionString(sessions.Default(c), sessionAccountID)
	if accountID == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	ctx := c.Request.Context()
	account, err := s.opts.Store.GetAccount(ctx, accountID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			common.LogError(err, "Failed to load account", common.Fields{"account_id": accountID})
		}
		// Provisioning may not have stored the account yet.
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"accountId":     accountID,
			"state":         s.opts.Provisioner.State(ctx, accountID),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": account.Connected(),
		"accountId":     account.ID,
		"state":         s.opts.Provisioner.State(ctx, accountID),
	})
}

// handleLogout forgets the stored credential. The field mapping is kept.
func (s *Server) handleLogout(c *gin.Context) {
	session := sessions.Default(c)
	accountID := sessionString(session, sessionAccountID)

	if accountID != "" {
		s.clearCredential(c, accountID)
	}

	session.Clear()
	if err := session.Save(); err != nil {
		common.LogError(err, "Failed to clear session", nil)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleDisconnect revokes the app on the platform, then logs out.
func (s *Server) handleDisconnect(c *gin.Context) {
	session := sessions.Default(c)
	accountID := sessionString(session, sessionAccountID)
	if accountID == "" {
		errorJSON(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	ctx := c.Request.Context()
	account, err := s.opts.Store.GetAccount(ctx, accountID)
	if err == nil && account.Connected() {
		if err := s.opts.Platform.Disconnect(ctx, account.Credential); err != nil {
			common.LogError(err, "Platform disconnect failed", common.Fields{"account_id": accountID})
			if !errors.Is(err, common.ErrCredentialInvalid) {
				errorJSON(c, http.StatusBadGateway, "disconnect failed")
				return
			}
		}
	}

	s.handleLogout(c)
}

func (s *Server) clearCredential(c *gin.Context, accountID string) {
	_, err := s.opts.Store.UpdateAccount(c.Request.Context(), accountID, model.ClearCredential())
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		common.LogError(err, "Failed to clear credential", common.Fields{"account_id": accountID})
	}
}
