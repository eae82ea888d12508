package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"parrillas/internal/backend"
	"parrillas/internal/model"
)

const dateLayout = "2006-01-02"

type userRow struct {
	ID          string         `gorm:"primaryKey;type:uuid"`
	FullName    string         `gorm:"not null"`
	Role        string         `gorm:"not null"`
	AvatarURL   *string
	Preferences datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userRow) TableName() string { return backend.TableUserProfiles }

func (r userRow) model() model.UserProfile {
	u := model.UserProfile{
		ID:        r.ID,
		FullName:  r.FullName,
		Role:      model.Role(r.Role),
		AvatarURL: r.AvatarURL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Preferences) > 0 {
		var p model.Preferences
		if err := json.Unmarshal(r.Preferences, &p); err == nil {
			u.Preferences = &p
		}
	}
	return u
}

func prefsJSON(p *model.Preferences) datatypes.JSON {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

type clientRow struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Name         string `gorm:"not null"`
	Color        string `gorm:"not null"`
	ContactEmail *string
	ContactPhone *string
	CreatedBy    *string `gorm:"type:uuid"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (clientRow) TableName() string { return backend.TableClients }

func (r clientRow) model() model.Client {
	return model.Client{
		ID:           r.ID,
		Name:         r.Name,
		Color:        r.Color,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type statusRow struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	Name       string `gorm:"not null"`
	Color      string `gorm:"not null"`
	Icon       *string
	OrderIndex int `gorm:"not null"`
	CreatedAt  time.Time
}

func (statusRow) TableName() string { return backend.TableStatuses }

func (r statusRow) model() model.Status {
	return model.Status{ID: r.ID, Name: r.Name, Color: r.Color, Icon: r.Icon, OrderIndex: r.OrderIndex, CreatedAt: r.CreatedAt}
}

type labelRow struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string `gorm:"not null"`
	Color     string `gorm:"not null"`
	CreatedAt time.Time
}

func (labelRow) TableName() string { return backend.TableLabels }

func (r labelRow) model() model.Label {
	return model.Label{ID: r.ID, Name: r.Name, Color: r.Color, CreatedAt: r.CreatedAt}
}

type itemRow struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Title       string `gorm:"not null"`
	Description *string
	StatusID    string     `gorm:"type:uuid;not null;index"`
	ClientID    string     `gorm:"type:uuid;not null;index"`
	DueDate     *time.Time `gorm:"type:date"`
	Priority    string     `gorm:"not null;default:medium"`
	CreatedBy   *string    `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (itemRow) TableName() string { return backend.TableItems }

func (r itemRow) model() model.ContentItem {
	it := model.ContentItem{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StatusID:    r.StatusID,
		ClientID:    r.ClientID,
		Priority:    model.Priority(r.Priority),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.DueDate != nil {
		s := r.DueDate.Format(dateLayout)
		it.DueDate = &s
	}
	return it
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type assigneeRow struct {
	ParrillaID string `gorm:"primaryKey;type:uuid"`
	UserID     string `gorm:"primaryKey;type:uuid"`
	AssignedAt time.Time
}

func (assigneeRow) TableName() string { return backend.TableAssignees }

type itemLabelRow struct {
	ParrillaID string `gorm:"primaryKey;type:uuid"`
	LabelID    string `gorm:"primaryKey;type:uuid"`
}

func (itemLabelRow) TableName() string { return backend.TableItemLabels }

type imageRow struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	ParrillaID string `gorm:"type:uuid;not null;index"`
	ImageURL   string `gorm:"not null"`
	Caption    *string
	OrderIndex int
	UploadedBy *string `gorm:"type:uuid"`
	CreatedAt  time.Time
}

func (imageRow) TableName() string { return backend.TableImages }

func (r imageRow) model() model.Image {
	return model.Image{
		ID:         r.ID,
		ParrillaID: r.ParrillaID,
		URL:        r.ImageURL,
		Caption:    r.Caption,
		OrderIndex: r.OrderIndex,
		UploadedBy: r.UploadedBy,
		CreatedAt:  r.CreatedAt,
	}
}

type commentRow struct {
	ID            string  `gorm:"primaryKey;type:uuid"`
	ParrillaID    string  `gorm:"type:uuid;not null;index"`
	ImageID       *string `gorm:"type:uuid"`
	Content       string  `gorm:"not null"`
	AttachmentURL *string
	CreatedBy     *string `gorm:"type:uuid"`
	CreatedAt     time.Time
}

func (commentRow) TableName() string { return backend.TableComments }

func (r commentRow) model() model.Comment {
	return model.Comment{
		ID:            r.ID,
		ParrillaID:    r.ParrillaID,
		ImageID:       r.ImageID,
		Content:       r.Content,
		AttachmentURL: r.AttachmentURL,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
	}
}

type notificationRow struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	UserID    string `gorm:"type:uuid;not null;index"`
	Title     string `gorm:"not null"`
	Message   string `gorm:"not null"`
	Type      string `gorm:"not null;default:info"`
	Link      *string
	IsRead    bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (notificationRow) TableName() string { return backend.TableNotifications }

func (r notificationRow) model() model.Notification {
	return model.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      model.NotificationType(r.Type),
		Link:      r.Link,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}
}

type settingRow struct {
	Key       string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (settingRow) TableName() string { return backend.TableSettings }

func mapRows[R any, M any](rows []R, conv func(R) M) []M {
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out
}
