package apiserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/migration"
)

const (
	CodeBadRequest      = "bad_request"
	CodeCreateFileError = "create_file_error"
	CodeDeleteFileError = "delete_file_error"
	CodeDataAPIError    = "data_api_error"
	CodeVersionError    = "version_record_error"
	CodeInternalError   = "internal_error"
)

type Response struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Name    string `json:"name,omitempty"`
}

type MigrateRequest struct {
	Name       string               `json:"name"`
	Up         []hasura.RequestBody `json:"up"`
	Down       []hasura.RequestBody `json:"down"`
	Datasource string               `json:"datasource,omitempty"`
	// SkipExecution records a change already made on the server without
	// applying it again.
	SkipExecution bool `json:"skip_execution,omitempty"`
}

func (s *APIServer) migrate(c *gin.Context) {
	var request MigrateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, &Response{Code: CodeBadRequest, Message: err.Error()})
		return
	}
	res, err := s.opts.Runner.Run(c.Request.Context(), migration.Migration{
		Name:   request.Name,
		Source: request.Datasource,
		Up:     request.Up,
		Down:   request.Down,

		SkipExecution: request.SkipExecution,
	}, migration.Messages{}, migration.Callbacks{})
	if err != nil {
		status, resp := errorResponse(err)
		s.opts.Logger.WithError(err).Debugf("migration %s failed with %s", request.Name, resp.Code)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, &Response{Name: res.Name})
}

// errorResponse maps a pipeline failure to the codes the console
// understands. File failures win over the engine error they followed.
func errorResponse(err error) (int, *Response) {
	var versionErr *migration.VersionError
	if errors.As(err, &versionErr) {
		return http.StatusInternalServerError, &Response{Code: CodeVersionError, Message: versionErr.Error()}
	}
	var fileErr *migration.FileError
	if errors.As(err, &fileErr) {
		code := CodeCreateFileError
		if fileErr.Action == migration.FileDelete {
			code = CodeDeleteFileError
		}
		return http.StatusInternalServerError, &Response{Code: code, Message: fileErr.Error()}
	}
	switch errors.GetKind(err) {
	case errors.KindBadInput:
		return http.StatusBadRequest, &Response{Code: CodeBadRequest, Message: rootMessage(err)}
	case errors.KindHasuraAPI:
		return http.StatusBadRequest, &Response{Code: CodeDataAPIError, Message: rootMessage(err)}
	}
	return http.StatusInternalServerError, &Response{Code: CodeInternalError, Message: rootMessage(err)}
}

// rootMessage drops the op chain and keeps what the engine or the
// validation said.
func rootMessage(err error) string {
	var apiErr *hasura.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	for {
		var e *errors.Error
		if !errors.As(err, &e) || e.Err == nil {
			return err.Error()
		}
		err = e.Err
	}
}

func (s *APIServer) exportMetadata(c *gin.Context) {
	md, err := s.opts.Exporter.ExportMetadata(c.Request.Context())
	if err != nil {
		status, resp := errorResponse(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, md)
}

func (s *APIServer) listSources(c *gin.Context) {
	if _, err := s.opts.Exporter.ExportMetadata(c.Request.Context()); err != nil {
		status, resp := errorResponse(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": s.opts.Sources.List()})
}

func (s *APIServer) listNotifications(c *gin.Context) {
	if s.opts.Notifier == nil {
		c.JSON(http.StatusOK, gin.H{"notifications": []interface{}{}, "unread": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": s.opts.Notifier.List(),
		"unread":        s.opts.Notifier.Unread(),
	})
}

func (s *APIServer) markNotificationsRead(c *gin.Context) {
	var request struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, &Response{Code: CodeBadRequest, Message: err.Error()})
		return
	}
	if s.opts.Notifier == nil {
		c.JSON(http.StatusOK, &Response{Message: "success"})
		return
	}
	if request.ID == "" {
		s.opts.Notifier.MarkAllRead()
	} else if !s.opts.Notifier.MarkRead(request.ID) {
		c.JSON(http.StatusNotFound, &Response{Code: CodeBadRequest, Message: fmt.Sprintf("notification %q not found", request.ID)})
		return
	}
	c.JSON(http.StatusOK, &Response{Message: "success"})
}
