package web

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/server/filestore"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
)

const (
	msgNoFile          = "No File Selected"
	msgNoExtension     = "The file name needs an extension, for example claim.docx."
	msgBadFileName     = "That file name cannot be used. Please rename the file and try again."
	msgFileUnreadable  = "That file is damaged and could not be opened."
	msgFileNotFound    = "That file no longer exists."
	msgClaimFormAbsent = "The claim form is not available right now."
)

type warrantyPage struct {
	CanManage bool
	Files     []models.StoredFile
}

func (s *Server) warrantyPage(r *http.Request) (warrantyPage, error) {
	wp := warrantyPage{CanManage: s.policy.Allowed(actorFrom(r.Context()), policy.ManageFiles, nil)}
	if !wp.CanManage {
		return wp, nil
	}
	files, err := s.files.List(r.Context())
	wp.Files = files
	return wp, err
}

// warrantyIndex offers the upload form to everyone; the stored file list
// is for admins only.
func (s *Server) warrantyIndex(w http.ResponseWriter, r *http.Request) {
	wp, err := s.warrantyPage(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "warranty", page{Title: "Warranty", Data: wp})
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, msg string) {
		wp, err := s.warrantyPage(r)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, status, "warranty", page{Title: "Warranty", Error: msg, Data: wp})
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			fail(http.StatusUnprocessableEntity, msgNoFile)
			return
		}
		s.serverError(w, r, err)
		return
	}
	defer file.Close()

	if header.Size == 0 {
		fail(http.StatusUnprocessableEntity, msgNoFile)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	name, err := s.files.Save(r.Context(), header.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, filestore.ErrNoExtension):
			fail(http.StatusUnprocessableEntity, msgNoExtension)
			return
		case errors.Is(err, common.ErrInvalidName):
			fail(http.StatusUnprocessableEntity, msgBadFileName)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.metrics.FilesUploaded.Inc()
	s.logger.Info(r.Context(), "warranty file uploaded", "name", name, "size", len(content))
	s.redirectWithFlash(w, r, "/warranty", "Thank you. Your claim was received as "+name+".")
}

// downloadClaimForm serves the blank form as-is, without authentication.
func (s *Server) downloadClaimForm(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.files.BlankForm()
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.redirectWithFlash(w, r, "/warranty", msgClaimFormAbsent)
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeAttachment(w, name, data)
}

// downloadFile decrypts a stored file. A missing file quietly returns to
// the index; a file that fails to decrypt is reported.
func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageFiles) {
		return
	}

	name := r.PathValue("name")
	data, err := s.files.Load(r.Context(), name)
	switch {
	case err == nil:
		writeAttachment(w, name, data)
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrInvalidName):
		http.Redirect(w, r, "/warranty", http.StatusFound)
	case errors.Is(err, common.ErrDecryption):
		s.logger.Error(r.Context(), "stored file failed to decrypt", "name", name, "error", err)
		s.redirectWithFlash(w, r, "/warranty", msgFileUnreadable)
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) deleteFileConfirm(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageFiles) {
		return
	}
	s.render(w, r, http.StatusOK, "file_delete", page{Title: "Delete file", Data: r.PathValue("name")})
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, policy.ManageFiles) {
		return
	}

	name := r.PathValue("name")
	err := s.files.Delete(r.Context(), name)
	switch {
	case err == nil:
		s.logger.Info(r.Context(), "warranty file deleted", "name", name, "by", actorFrom(r.Context()).Username)
		s.redirectWithFlash(w, r, "/warranty", "File deleted.")
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrInvalidName):
		s.logger.Warn(r.Context(), "delete of missing file", "name", name, "error", err)
		s.redirectWithFlash(w, r, "/warranty", msgFileNotFound)
	default:
		s.serverError(w, r, err)
	}
}

func writeAttachment(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
