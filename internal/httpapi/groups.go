package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/submerge-go/internal/model"
)

type groupsResponse struct {
	Groups []model.Group `json:"groups"`
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type updateGroupRequest struct {
	Name  *string   `json:"name"`
	Links *[]string `json:"links"`
}

type appendLinksRequest struct {
	Links []string `json:"links"`
}

type importConfigRequest struct {
	Format string `json:"format"`
	Config string `json:"config"`
}

type importConfigResponse struct {
	Imported int         `json:"imported"`
	Group    model.Group `json:"group"`
}

type setupRequest struct {
	Token string `json:"token"`
}

func (h apiHandler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, groupsResponse{Groups: groups})
}

func (h apiHandler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var body createGroupRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	g, err := h.groups.Create(r.Context(), body.Name)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, g)
}

func (h apiHandler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

func (h apiHandler) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var body updateGroupRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	if body.Name == nil && body.Links == nil {
		writeErrorFromErr(w, requestError("INVALID_ARGUMENT", "name 和 links 至少需要一个", ""))
		return
	}
	g, err := h.groups.Update(r.Context(), r.PathValue("id"), body.Name, body.Links)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

func (h apiHandler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h apiHandler) handleAppendLinks(w http.ResponseWriter, r *http.Request) {
	var body appendLinksRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	g, err := h.groups.AppendLinks(r.Context(), r.PathValue("id"), body.Links)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

func (h apiHandler) handleImportConfig(w http.ResponseWriter, r *http.Request) {
	var body importConfigRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	if strings.TrimSpace(body.Config) == "" {
		writeErrorFromErr(w, requestError("INVALID_ARGUMENT", "config 不能为空", ""))
		return
	}
	g, imported, err := h.groups.ImportConfig(r.Context(), r.PathValue("id"), body.Format, body.Config)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, importConfigResponse{Imported: imported, Group: g})
}

// handleSetup is the only admin operation allowed before a token exists.
func (h apiHandler) handleSetup(w http.ResponseWriter, r *http.Request) {
	var body setupRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	if err := h.guard.Setup(r.Context(), body.Token); err != nil {
		writeErrorFromErr(w, err)
		return
	}
	WriteText(w, http.StatusOK, "ok\n")
}

func decodeJSONBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return requestError("INVALID_ARGUMENT", "JSON body 不允许多段", "")
	} else if !errors.Is(err, io.EOF) {
		return requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}
	return nil
}
