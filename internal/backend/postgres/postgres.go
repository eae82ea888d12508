// Package postgres is the remote backend: the Supabase Postgres database reached through gorm.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"parrillas/internal/backend"
	"parrillas/internal/model"
)

type DB struct {
	db  *gorm.DB
	now func() time.Time
}

var _ backend.Backend = (*DB)(nil)

type Options struct {
	// Logger receives gorm's SQL log. Nil silences it.
	Logger logger.Interface
	// DryRun builds statements without executing them.
	DryRun bool
}

func Open(dsn string, opts Options) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: empty database url")
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               lg,
		DryRun:               opts.DryRun,
		DisableAutomaticPing: opts.DryRun,
		NowFunc:              func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if !opts.DryRun {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(8)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}
	return &DB{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// AutoMigrate creates the tables on a scratch database (tests, local Postgres).
// The hosted schema is owned by Supabase migrations.
func (d *DB) AutoMigrate(ctx context.Context) error {
	return d.db.WithContext(ctx).AutoMigrate(
		&userRow{}, &clientRow{}, &statusRow{}, &labelRow{}, &itemRow{},
		&assigneeRow{}, &itemLabelRow{}, &imageRow{}, &commentRow{},
		&notificationRow{}, &settingRow{},
	)
}

func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, table, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return backend.NotFoundError{Table: table, ID: id}
	}
	return err
}

func checkAffected(tx *gorm.DB, table, id string) error {
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return backend.NotFoundError{Table: table, ID: id}
	}
	return nil
}

func (d *DB) ListClients(ctx context.Context) ([]model.Client, error) {
	var rows []clientRow
	if err := d.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, clientRow.model), nil
}

func (d *DB) InsertClient(ctx context.Context, in model.NewClient) (model.Client, error) {
	row := clientRow{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Color:        in.Color,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		CreatedBy:    in.CreatedBy,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Client{}, err
	}
	return row.model(), nil
}

func (d *DB) DeleteClient(ctx context.Context, id string) error {
	return checkAffected(d.db.WithContext(ctx).Delete(&clientRow{}, "id = ?", id), backend.TableClients, id)
}

func (d *DB) ListStatuses(ctx context.Context) ([]model.Status, error) {
	var rows []statusRow
	if err := d.db.WithContext(ctx).Order("order_index").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, statusRow.model), nil
}

func (d *DB) ListLabels(ctx context.Context) ([]model.Label, error) {
	var rows []labelRow
	if err := d.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, labelRow.model), nil
}

func (d *DB) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	var rows []userRow
	if err := d.db.WithContext(ctx).Order("full_name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, userRow.model), nil
}

func (d *DB) GetUser(ctx context.Context, id string) (model.UserProfile, error) {
	var row userRow
	if err := d.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return model.UserProfile{}, notFound(err, backend.TableUserProfiles, id)
	}
	return row.model(), nil
}

func (d *DB) UpsertUser(ctx context.Context, u model.UserProfile) (model.UserProfile, error) {
	if _, err := model.ParseRole(string(u.Role)); err != nil {
		return model.UserProfile{}, err
	}
	if strings.TrimSpace(u.ID) == "" {
		u.ID = uuid.NewString()
	}
	row := userRow{ID: u.ID, FullName: u.FullName, Role: string(u.Role), AvatarURL: u.AvatarURL, Preferences: prefsJSON(u.Preferences), CreatedAt: u.CreatedAt}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "role", "avatar_url", "preferences", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return model.UserProfile{}, err
	}
	return row.model(), nil
}

func (d *DB) UpdateUser(ctx context.Context, id string, patch model.ProfilePatch) error {
	cols := map[string]any{"updated_at": d.now()}
	if patch.FullName != nil {
		cols["full_name"] = *patch.FullName
	}
	if patch.AvatarURL != nil {
		cols["avatar_url"] = *patch.AvatarURL
	}
	if patch.Preferences != nil {
		cols["preferences"] = prefsJSON(patch.Preferences)
	}
	return checkAffected(d.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Updates(cols), backend.TableUserProfiles, id)
}

func (d *DB) ListContentItems(ctx context.Context) ([]model.ContentItem, error) {
	var rows []itemRow
	if err := d.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, itemRow.model), nil
}

func (d *DB) InsertContentItem(ctx context.Context, in model.NewContentItem) (model.ContentItem, error) {
	due, err := parseDate(in.DueDate)
	if err != nil {
		return model.ContentItem{}, fmt.Errorf("due date: %w", err)
	}
	prio := in.Priority
	if prio == "" {
		prio = model.PriorityMedium
	}
	row := itemRow{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StatusID:    in.StatusID,
		ClientID:    in.ClientID,
		DueDate:     due,
		Priority:    string(prio),
		CreatedBy:   in.CreatedBy,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.ContentItem{}, err
	}
	return row.model(), nil
}

func (d *DB) UpdateContentItem(ctx context.Context, id string, patch model.ContentItemPatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = d.now()
	return checkAffected(d.db.WithContext(ctx).Model(&itemRow{}).Where("id = ?", id).Updates(cols), backend.TableItems, id)
}

func (d *DB) DeleteContentItem(ctx context.Context, id string) error {
	return checkAffected(d.db.WithContext(ctx).Delete(&itemRow{}, "id = ?", id), backend.TableItems, id)
}

func (d *DB) ListAssignees(ctx context.Context) ([]model.Assignee, error) {
	var rows []assigneeRow
	if err := d.db.WithContext(ctx).Order("assigned_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, func(r assigneeRow) model.Assignee {
		return model.Assignee{ParrillaID: r.ParrillaID, UserID: r.UserID, AssignedAt: r.AssignedAt}
	}), nil
}

func (d *DB) ListItemLabels(ctx context.Context) ([]model.ItemLabel, error) {
	var rows []itemLabelRow
	if err := d.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, func(r itemLabelRow) model.ItemLabel {
		return model.ItemLabel{ParrillaID: r.ParrillaID, LabelID: r.LabelID}
	}), nil
}

func (d *DB) InsertAssignees(ctx context.Context, itemID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return d.patchAssignees(tx, itemID, userIDs, nil)
	})
}

func (d *DB) InsertItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return patchItemLabels(tx, itemID, labelIDs, nil)
	})
}

// SetAssignees diffs against the rows read inside the transaction, not a caller's cache.
func (d *DB) SetAssignees(ctx context.Context, itemID string, userIDs []string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []string
		if err := tx.Model(&assigneeRow{}).Where("parrilla_id = ?", itemID).Pluck("user_id", &current).Error; err != nil {
			return err
		}
		add, remove := backend.Diff(current, userIDs)
		return d.patchAssignees(tx, itemID, add, remove)
	})
}

func (d *DB) SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []string
		if err := tx.Model(&itemLabelRow{}).Where("parrilla_id = ?", itemID).Pluck("label_id", &current).Error; err != nil {
			return err
		}
		add, remove := backend.Diff(current, labelIDs)
		return patchItemLabels(tx, itemID, add, remove)
	})
}

func (d *DB) patchAssignees(tx *gorm.DB, itemID string, add, remove []string) error {
	if len(remove) > 0 {
		if err := tx.Where("parrilla_id = ? AND user_id IN ?", itemID, remove).Delete(&assigneeRow{}).Error; err != nil {
			return err
		}
	}
	if len(add) > 0 {
		now := d.now()
		rows := make([]assigneeRow, 0, len(add))
		for _, uid := range add {
			rows = append(rows, assigneeRow{ParrillaID: itemID, UserID: uid, AssignedAt: now})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func patchItemLabels(tx *gorm.DB, itemID string, add, remove []string) error {
	if len(remove) > 0 {
		if err := tx.Where("parrilla_id = ? AND label_id IN ?", itemID, remove).Delete(&itemLabelRow{}).Error; err != nil {
			return err
		}
	}
	if len(add) > 0 {
		rows := make([]itemLabelRow, 0, len(add))
		for _, lid := range add {
			rows = append(rows, itemLabelRow{ParrillaID: itemID, LabelID: lid})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) ListImages(ctx context.Context) ([]model.Image, error) {
	var rows []imageRow
	if err := d.db.WithContext(ctx).Order("order_index").Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, imageRow.model), nil
}

func (d *DB) InsertImage(ctx context.Context, in model.NewImage) (model.Image, error) {
	row := imageRow{
		ID:         uuid.NewString(),
		ParrillaID: in.ParrillaID,
		ImageURL:   in.URL,
		Caption:    in.Caption,
		OrderIndex: in.OrderIndex,
		UploadedBy: in.UploadedBy,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Image{}, err
	}
	return row.model(), nil
}

func (d *DB) DeleteImage(ctx context.Context, id string) error {
	return checkAffected(d.db.WithContext(ctx).Delete(&imageRow{}, "id = ?", id), backend.TableImages, id)
}

func (d *DB) ListComments(ctx context.Context) ([]model.Comment, error) {
	var rows []commentRow
	if err := d.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, commentRow.model), nil
}

func (d *DB) InsertComment(ctx context.Context, in model.NewComment) (model.Comment, error) {
	row := commentRow{
		ID:            uuid.NewString(),
		ParrillaID:    in.ParrillaID,
		ImageID:       in.ImageID,
		Content:       in.Content,
		AttachmentURL: in.AttachmentURL,
		CreatedBy:     in.CreatedBy,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Comment{}, err
	}
	return row.model(), nil
}

func (d *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []notificationRow
	if err := d.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapRows(rows, notificationRow.model), nil
}

func (d *DB) InsertNotification(ctx context.Context, in model.NewNotification) (model.Notification, error) {
	typ := in.Type
	if typ == "" {
		typ = model.NotificationInfo
	}
	row := notificationRow{
		ID:      uuid.NewString(),
		UserID:  in.UserID,
		Title:   in.Title,
		Message: in.Message,
		Type:    string(typ),
		Link:    in.Link,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Notification{}, err
	}
	return row.model(), nil
}

func (d *DB) MarkNotificationRead(ctx context.Context, id string) error {
	return checkAffected(d.db.WithContext(ctx).Model(&notificationRow{}).Where("id = ?", id).Update("is_read", true), backend.TableNotifications, id)
}

func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return d.db.WithContext(ctx).Model(&notificationRow{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (d *DB) GetSetting(ctx context.Context, key string) (model.Setting, error) {
	var row settingRow
	if err := d.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return model.Setting{}, notFound(err, backend.TableSettings, key)
	}
	return model.Setting{Key: row.Key, Value: json.RawMessage(row.Value), UpdatedAt: row.UpdatedAt}, nil
}

func (d *DB) UpsertSetting(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return errors.New("setting value is not valid JSON")
	}
	row := settingRow{Key: key, Value: datatypes.JSON(value), UpdatedAt: d.now()}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
