// Package convert maps domain models to and from the JSON wire shapes of the HTTP API.
package convert

import (
	"math"
	"strconv"
	"strings"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/errs"
	model "github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/pdfdoc"
)

// --- helpers ---

func ts(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// ParseID parses a path or body identifier.
func ParseID(s string) (u.UUID, error) {
	id, err := u.FromString(strings.TrimSpace(s))
	if err != nil {
		return u.Nil, errs.Invalid("invalid id %q", s)
	}
	return id, nil
}

// --- Users ---

// User is the public view of an account; the password hash never leaves the server.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ToUser converts a domain user.
func ToUser(in model.User) User {
	return User{
		ID:        in.ID.String(),
		Name:      in.Name,
		Email:     in.Email,
		Role:      string(in.Role),
		CreatedAt: ts(in.CreatedAt),
	}
}

// ToUsers converts a slice; nil becomes an empty list.
func ToUsers(in []model.User) []User {
	out := make([]User, 0, len(in))
	for _, v := range in {
		out = append(out, ToUser(v))
	}
	return out
}

// --- Documents ---

// Document is a document row as returned to clients.
type Document struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Filename    string     `json:"filename"`
	Status      string     `json:"status"`
	StatusLabel string     `json:"statusLabel"`
	Summary     *string    `json:"summary,omitempty"`
	OwnerID     string     `json:"ownerId"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// ToDocument converts a domain document. The storage key is not exposed.
func ToDocument(in model.Document) Document {
	return Document{
		ID:          in.ID.String(),
		Title:       in.Title,
		Filename:    in.Filename,
		Status:      string(in.Status),
		StatusLabel: in.Status.Label(),
		Summary:     in.Summary,
		OwnerID:     in.OwnerID.String(),
		CreatedAt:   ts(in.CreatedAt),
	}
}

// ToDocuments converts a slice; nil becomes an empty list.
func ToDocuments(in []model.Document) []Document {
	out := make([]Document, 0, len(in))
	for _, v := range in {
		out = append(out, ToDocument(v))
	}
	return out
}

// --- Field positions ---

// FieldPosition is one stored placement.
type FieldPosition struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"documentId"`
	PageNumber    int     `json:"pageNumber"`
	FieldName     string  `json:"fieldName"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	PreviewWidth  float64 `json:"pdfWidth"`
	PreviewHeight float64 `json:"pdfHeight"`
}

// ToFieldPositions converts stored positions.
func ToFieldPositions(in []model.FieldPosition) []FieldPosition {
	out := make([]FieldPosition, 0, len(in))
	for _, p := range in {
		out = append(out, FieldPosition{
			ID:            p.ID.String(),
			DocumentID:    p.DocumentID.String(),
			PageNumber:    p.Page,
			FieldName:     string(p.Field),
			X:             p.X,
			Y:             p.Y,
			PreviewWidth:  p.PreviewWidth,
			PreviewHeight: p.PreviewHeight,
		})
	}
	return out
}

// Coord is an x/y pair in preview pixels.
type Coord struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// PositionsRequest is the admin's layout: page number (as a string key) to
// field name to coordinate, plus the preview size it was measured against.
type PositionsRequest struct {
	Positions map[string]map[string]Coord `json:"positions"`
	PdfWidth  *float64                    `json:"pdfWidth"`
	PdfHeight *float64                    `json:"pdfHeight"`
}

// FromPositionsRequest validates the wire shape and builds the domain payload.
// Missing preview dimensions become 0, which the stamper treats as unknown.
func FromPositionsRequest(in PositionsRequest) (model.PositionsPayload, error) {
	if in.Positions == nil {
		return model.PositionsPayload{}, errs.Invalid("positions is required")
	}
	out := model.PositionsPayload{Pages: make(map[int]map[model.FieldName]model.Placement, len(in.Positions))}
	if in.PdfWidth != nil {
		out.PreviewWidth = *in.PdfWidth
	}
	if in.PdfHeight != nil {
		out.PreviewHeight = *in.PdfHeight
	}
	for key, fields := range in.Positions {
		page, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || page < 1 {
			return model.PositionsPayload{}, errs.Invalid("page %q: must be an integer >= 1", key)
		}
		if _, dup := out.Pages[page]; dup {
			return model.PositionsPayload{}, errs.Invalid("page %d given twice", page)
		}
		placed := make(map[model.FieldName]model.Placement, len(fields))
		for name, c := range fields {
			f, err := model.ParseFieldName(name)
			if err != nil {
				return model.PositionsPayload{}, err
			}
			if c.X == nil || c.Y == nil {
				return model.PositionsPayload{}, errs.Invalid("page %d field %s: x and y are required", page, name)
			}
			placed[f] = model.Placement{X: *c.X, Y: *c.Y}
		}
		out.Pages[page] = placed
	}
	return out, nil
}

// --- Metadata ---

// PageSize is a native page size in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Metadata is the page structure and layout of a document.
type Metadata struct {
	TotalPage int             `json:"totalPage"`
	Pages     []PageSize      `json:"pages"`
	Positions []FieldPosition `json:"positions"`
}

// ToMetadata converts inspection results and stored positions.
func ToMetadata(info pdfdoc.Info, positions []model.FieldPosition) Metadata {
	pages := make([]PageSize, 0, len(info.Dims))
	for _, d := range info.Dims {
		pages = append(pages, PageSize{Width: round2(d.W), Height: round2(d.H)})
	}
	return Metadata{TotalPage: info.Pages, Pages: pages, Positions: ToFieldPositions(positions)}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// --- Signing requests ---

// SigningRequest is a request as returned to clients.
type SigningRequest struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"documentId"`
	UserID      *string    `json:"userId"`
	Email       *string    `json:"email"`
	Status      string     `json:"status"`
	StatusLabel string     `json:"statusLabel"`
	SignedAt    *time.Time `json:"signedAt"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// ToSigningRequest converts a domain request.
func ToSigningRequest(in model.SigningRequest) SigningRequest {
	out := SigningRequest{
		ID:          in.ID.String(),
		DocumentID:  in.DocumentID.String(),
		Email:       in.Email,
		Status:      string(in.Status),
		StatusLabel: in.Status.Label(),
		CreatedAt:   ts(in.CreatedAt),
	}
	if in.UserID != nil {
		s := in.UserID.String()
		out.UserID = &s
	}
	if in.SignedAt != nil {
		out.SignedAt = ts(*in.SignedAt)
	}
	return out
}

// ToSigningRequests converts a slice; nil becomes an empty list.
func ToSigningRequests(in []model.SigningRequest) []SigningRequest {
	out := make([]SigningRequest, 0, len(in))
	for _, v := range in {
		out = append(out, ToSigningRequest(v))
	}
	return out
}

// CreateRequests is the admin's request to ask one recipient to sign documents.
type CreateRequests struct {
	DocumentIDs []string `json:"documentIds"`
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
}

// FromCreateRequests parses ids; recipient rules are enforced by the service.
func FromCreateRequests(in CreateRequests) ([]u.UUID, *u.UUID, string, error) {
	ids := make([]u.UUID, 0, len(in.DocumentIDs))
	for _, s := range in.DocumentIDs {
		id, err := ParseID(s)
		if err != nil {
			return nil, nil, "", err
		}
		ids = append(ids, id)
	}
	var userID *u.UUID
	if strings.TrimSpace(in.UserID) != "" {
		id, err := ParseID(in.UserID)
		if err != nil {
			return nil, nil, "", err
		}
		userID = &id
	}
	return ids, userID, in.Email, nil
}

// --- Signing ---

// SignRequest is the signer's submission.
type SignRequest struct {
	RequestID string `json:"requestId"`
	DocID     string `json:"docId"`
	UserName  string `json:"userName"`
	Signature string `json:"signature"`
}

// SignResponse points at the signed copy.
type SignResponse struct {
	SignedDocumentID string `json:"signedDocumentId"`
	PdfURL           string `json:"pdfUrl"`
}

// ToSignResponse converts the stamper output.
func ToSignResponse(in model.SignedOutput) SignResponse {
	return SignResponse{SignedDocumentID: in.DocumentID.String(), PdfURL: in.URL}
}

// --- Summary ---

// SummaryRequest carries regeneration options; absent fields take defaults.
type SummaryRequest struct {
	Model              string `json:"model"`
	MaxTokens          int    `json:"maxTokens"`
	CustomPrompt       bool   `json:"customPrompt"`
	PromptText         string `json:"promptText"`
	OutputType         string `json:"outputType"`
	BulletPoints       bool   `json:"bulletPoints"`
	HighlightKeyPoints bool   `json:"highlightKeyPoints"`
}
