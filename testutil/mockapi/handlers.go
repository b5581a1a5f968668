package mockapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/server"
	"github.com/kbukum/reqkit/server/middleware"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type userInfo struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (a *API) routes() {
	r := a.server.Engine()
	r.POST(LoginPath, a.login)
	r.GET(RefreshPath, a.refresh)

	authed := r.Group(BasePath, middleware.Auth(middleware.AuthConfig{TokenValidator: a.validate}))
	authed.POST("/logout", a.logout)
	authed.GET("/getAccessCodes", a.accessCodes)
	authed.GET("/info", a.info)
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, http.StatusBadRequest, "username and password are required")
		return
	}
	if !a.checkPassword(req.Username, req.Password) {
		server.RespondError(c, http.StatusForbidden, "Username or password is incorrect.")
		return
	}

	access, err := a.IssueAccessToken(req.Username)
	if err != nil {
		server.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	a.logins.Add(1)
	a.log.Debug("User logged in", logger.Fields("user", req.Username))
	server.RespondOK(c, loginResult{AccessToken: access, RefreshToken: a.issueRefreshToken(req.Username)})
}

func (a *API) refresh(c *gin.Context) {
	a.refreshes.Add(1)
	if d := time.Duration(a.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-c.Request.Context().Done():
			return
		}
	}

	if a.failRefresh.Load() {
		server.RespondError(c, http.StatusForbidden, "refresh token is invalid")
		return
	}
	user, ok := a.refreshTokenUser(c.Query("refreshToken"))
	if !ok {
		server.RespondError(c, http.StatusForbidden, "refresh token is invalid")
		return
	}

	access, err := a.IssueAccessToken(user)
	if err != nil {
		server.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	server.RespondOK(c, access)
}

func (a *API) logout(c *gin.Context) {
	a.logouts.Add(1)
	a.revokeRefreshTokens(c.GetString("sub"))
	server.RespondOK(c, nil)
}

func (a *API) accessCodes(c *gin.Context) {
	server.RespondOK(c, a.cfg.AccessCodes)
}

func (a *API) info(c *gin.Context) {
	server.RespondOK(c, userInfo{Username: c.GetString("sub"), Roles: []string{"super"}})
}
