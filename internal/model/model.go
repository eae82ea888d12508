package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxImagesPerItem caps how many images a single content item may carry.
const MaxImagesPerItem = 6

type Role string

const (
	RoleDesigner         Role = "Designer"
	RoleContentManager   Role = "Content Manager"
	RoleCreativeDirector Role = "Creative Director"
	RoleCEO              Role = "CEO"
)

var Roles = []Role{RoleDesigner, RoleContentManager, RoleCreativeDirector, RoleCEO}

func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid role %q (expected one of: Designer, Content Manager, Creative Director, CEO)", s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("invalid priority %q (expected low|medium|high|urgent)", s)
	}
}

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(strings.ToLower(strings.TrimSpace(s))); t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return t, nil
	case "":
		return NotificationInfo, nil
	default:
		return "", fmt.Errorf("invalid notification type %q (expected info|success|warning|error)", s)
	}
}

type NotificationPrefs struct {
	All   *bool `json:"all,omitempty"`
	Email *bool `json:"email,omitempty"`
}

type Preferences struct {
	Notifications *NotificationPrefs `json:"notifications,omitempty"`
}

// NotificationsEnabled reports whether in-app alerts should fire.
// Unset preferences mean enabled.
func (p *Preferences) NotificationsEnabled() bool {
	if p == nil || p.Notifications == nil || p.Notifications.All == nil {
		return true
	}
	return *p.Notifications.All
}

type UserProfile struct {
	ID          string       `json:"id"`
	FullName    string       `json:"full_name"`
	Role        Role         `json:"role"`
	AvatarURL   *string      `json:"avatar_url,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ProfilePatch carries the profile fields a user may change about themselves.
type ProfilePatch struct {
	FullName    *string      `json:"full_name,omitempty"`
	AvatarURL   *string      `json:"avatar_url,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

func (p ProfilePatch) Apply(u UserProfile) UserProfile {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.AvatarURL != nil {
		v := *p.AvatarURL
		u.AvatarURL = &v
	}
	if p.Preferences != nil {
		prefs := *p.Preferences
		u.Preferences = &prefs
	}
	return u
}

type Client struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	ContactPhone *string   `json:"contact_phone,omitempty"`
	CreatedBy    *string   `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type NewClient struct {
	Name         string  `json:"name" validate:"required"`
	Color        string  `json:"color" validate:"required,hexcolor"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone,omitempty"`
	CreatedBy    *string `json:"created_by,omitempty"`
}

type Status struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Icon       *string   `json:"icon,omitempty"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}

type Label struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type ContentItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	StatusID    string    `json:"status_id"`
	ClientID    string    `json:"client_id"`
	DueDate     *string   `json:"due_date,omitempty"`
	Priority    Priority  `json:"priority"`
	CreatedBy   *string   `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewContentItem struct {
	Title       string   `json:"title" validate:"required"`
	Description *string  `json:"description,omitempty"`
	StatusID    string   `json:"status_id" validate:"required"`
	ClientID    string   `json:"client_id" validate:"required"`
	DueDate     *string  `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Priority    Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	CreatedBy   *string  `json:"created_by,omitempty"`
}

// ContentItemPatch is a partial update of an item's scalar fields.
// Nil means unchanged. An empty Description or DueDate clears the column.
type ContentItemPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	StatusID    *string   `json:"status_id,omitempty"`
	ClientID    *string   `json:"client_id,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

func (p ContentItemPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.StatusID == nil &&
		p.ClientID == nil && p.DueDate == nil && p.Priority == nil
}

func (p ContentItemPatch) Apply(it ContentItem) ContentItem {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Description != nil {
		it.Description = nonEmpty(*p.Description)
	}
	if p.StatusID != nil {
		it.StatusID = *p.StatusID
	}
	if p.ClientID != nil {
		it.ClientID = *p.ClientID
	}
	if p.DueDate != nil {
		it.DueDate = nonEmpty(*p.DueDate)
	}
	if p.Priority != nil {
		it.Priority = *p.Priority
	}
	return it
}

// Columns maps the patch to database column names. A nil value clears the column.
func (p ContentItemPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = nullable(*p.Description)
	}
	if p.StatusID != nil {
		cols["status_id"] = *p.StatusID
	}
	if p.ClientID != nil {
		cols["client_id"] = *p.ClientID
	}
	if p.DueDate != nil {
		cols["due_date"] = nullable(*p.DueDate)
	}
	if p.Priority != nil {
		cols["priority"] = string(*p.Priority)
	}
	return cols
}

type Assignee struct {
	ParrillaID string    `json:"parrilla_id"`
	UserID     string    `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

type ItemLabel struct {
	ParrillaID string `json:"parrilla_id"`
	LabelID    string `json:"label_id"`
}

type Image struct {
	ID         string    `json:"id"`
	ParrillaID string    `json:"parrilla_id"`
	URL        string    `json:"image_url"`
	Caption    *string   `json:"caption,omitempty"`
	OrderIndex int       `json:"order_index"`
	UploadedBy *string   `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewImage struct {
	ParrillaID string
	URL        string
	Caption    *string
	OrderIndex int
	UploadedBy *string
}

type Comment struct {
	ID            string    `json:"id"`
	ParrillaID    string    `json:"parrilla_id"`
	ImageID       *string   `json:"image_id,omitempty"`
	Content       string    `json:"content"`
	AttachmentURL *string   `json:"attachment_url,omitempty"`
	CreatedBy     *string   `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type NewComment struct {
	ParrillaID    string
	ImageID       *string
	Content       string
	AttachmentURL *string
	CreatedBy     *string
}

type CommentWithAuthor struct {
	Comment
	User UserProfile `json:"user"`
}

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Link      *string          `json:"link,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

type NewNotification struct {
	UserID  string           `json:"user_id" validate:"required"`
	Title   string           `json:"title" validate:"required"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type" validate:"omitempty,oneof=info success warning error"`
	Link    *string          `json:"link,omitempty"`
}

type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SettingDriveURL holds the agency-wide shared drive link as {"url": "..."}.
const SettingDriveURL = "drive_url"

// ContentItemWithRelations is the joined view the board renders.
type ContentItemWithRelations struct {
	ContentItem
	Client    Client              `json:"client"`
	Status    Status              `json:"status"`
	Assignees []UserProfile       `json:"assignees"`
	Labels    []Label             `json:"labels"`
	Images    []Image             `json:"images"`
	Comments  []CommentWithAuthor `json:"comments"`
}

// Clone returns a copy whose slices can be modified without touching the receiver.
func (it ContentItemWithRelations) Clone() ContentItemWithRelations {
	out := it
	out.Assignees = append([]UserProfile(nil), it.Assignees...)
	out.Labels = append([]Label(nil), it.Labels...)
	out.Images = append([]Image(nil), it.Images...)
	out.Comments = append([]CommentWithAuthor(nil), it.Comments...)
	return out
}

func (it ContentItemWithRelations) HasAssignee(userID string) bool {
	for _, u := range it.Assignees {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
