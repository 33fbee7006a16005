package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/services"
)

// UploadMeta is the event metadata sent with a document
type UploadMeta struct {
	EventName    string
	EventType    string
	Department   string
	AcademicYear string
	ProofType    string
	Description  string
}

func (m UploadMeta) fields() [][2]string {
	return [][2]string{
		{"eventName", m.EventName},
		{"eventType", m.EventType},
		{"department", m.Department},
		{"academicYear", m.AcademicYear},
		{"proofType", m.ProofType},
		{"description", m.Description},
	}
}

// Login exchanges credentials for a session
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp services.LoginResponse
	err := c.sendJSON(ctx, nil, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Session{Token: resp.Token, User: resp.User, ExpiresAt: resp.ExpiresAt}, nil
}

// Logout revokes the session on the server
func (c *Client) Logout(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNoSession
	}
	return c.sendJSON(ctx, s, http.MethodPost, "/api/logout", nil, nil)
}

// Me returns the account behind the session as currently stored
func (c *Client) Me(ctx context.Context, s *Session) (*models.PublicUser, error) {
	var user models.PublicUser
	if err := c.getJSON(ctx, s, "/api/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Upload streams a document with its metadata
func (c *Client) Upload(ctx context.Context, s *Session, meta UploadMeta, fileName string, r io.Reader) (*services.UploadResponse, error) {
	if s == nil {
		return nil, ErrNoSession
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, meta, fileName, r))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", nil, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp services.UploadResponse
	if err := c.do(req, s, &resp); err != nil {
		pr.Close()
		return nil, err
	}
	return &resp, nil
}

func writeUpload(mw *multipart.Writer, meta UploadMeta, fileName string, r io.Reader) error {
	for _, f := range meta.fields() {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return err
	}
	return mw.Close()
}

// ListProofs returns the proofs visible to the session user. status may be empty.
func (c *Client) ListProofs(ctx context.Context, s *Session, status string) ([]models.ProofListItem, error) {
	var proofs []models.ProofListItem
	if err := c.getJSON(ctx, s, "/api/proofs", statusQuery(status), &proofs); err != nil {
		return nil, err
	}
	return proofs, nil
}

func (c *Client) GetProof(ctx context.Context, s *Session, id uint) (*models.ProofListItem, error) {
	var proof models.ProofListItem
	if err := c.getJSON(ctx, s, fmt.Sprintf("/api/proofs/%d", id), nil, &proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

// UpdateStatus approves or rejects a proof. reason is only kept for rejections.
func (c *Client) UpdateStatus(ctx context.Context, s *Session, id uint, status models.ProofStatus, reason string) (*services.StatusUpdateResponse, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	body := map[string]interface{}{"status": status}
	if reason != "" {
		body["rejection_reason"] = reason
	}

	var resp services.StatusUpdateResponse
	if err := c.sendJSON(ctx, s, http.MethodPut, fmt.Sprintf("/api/proofs/%d/status", id), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ProofHistory(ctx context.Context, s *Session, id uint) ([]models.ProofReview, error) {
	var reviews []models.ProofReview
	if err := c.getJSON(ctx, s, fmt.Sprintf("/api/proofs/%d/history", id), nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Search finds student proofs by a substring of the student identifier
func (c *Client) Search(ctx context.Context, s *Session, studentUSN, status string) ([]models.SearchResult, error) {
	var results []models.SearchResult
	if err := c.getJSON(ctx, s, "/api/search", searchQuery(studentUSN, status), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ExportSearch writes the search results workbook to w
func (c *Client) ExportSearch(ctx context.Context, s *Session, studentUSN, status string, w io.Writer) error {
	if s == nil {
		return ErrNoSession
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/search/export", searchQuery(studentUSN, status), nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req, s)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) Stats(ctx context.Context, s *Session) (*models.AdminStats, error) {
	var stats models.AdminStats
	if err := c.getJSON(ctx, s, "/api/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Users(ctx context.Context, s *Session) ([]models.UserSummary, error) {
	var users []models.UserSummary
	if err := c.getJSON(ctx, s, "/api/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) UpdateRole(ctx context.Context, s *Session, userID uint, role models.UserRole) (*services.RoleUpdateResponse, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	var resp services.RoleUpdateResponse
	path := fmt.Sprintf("/api/admin/users/%d/role", userID)
	if err := c.sendJSON(ctx, s, http.MethodPut, path, map[string]models.UserRole{"role": role}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func statusQuery(status string) url.Values {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	return q
}

func searchQuery(studentUSN, status string) url.Values {
	q := statusQuery(status)
	if studentUSN != "" {
		q.Set("studentUSN", studentUSN)
	}
	return q
}

func widthQuery(width int) url.Values {
	q := url.Values{}
	if width > 0 {
		q.Set("width", strconv.Itoa(width))
	}
	return q
}
