package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/agenthands/cogniscan/internal/model"
)

const (
	usersCollection  = "users"
	modelsCollection = "models"
)

// Firestore talks to the Firestore REST API. Document layout: users/{uid}
// with name, email, role and createdAt; models/{auto} with bestModel, userId,
// filename and timestamp.
type Firestore struct {
	docs *firestore.ProjectsDatabasesDocumentsService
	root string
}

func NewFirestore(ctx context.Context, projectID, database string, opts ...option.ClientOption) (*Firestore, error) {
	if database == "" {
		database = "(default)"
	}
	svc, err := firestore.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore service: %w", err)
	}
	return &Firestore{
		docs: svc.Projects.Databases.Documents,
		root: fmt.Sprintf("projects/%s/databases/%s/documents", projectID, database),
	}, nil
}

func (f *Firestore) UserRole(ctx context.Context, uid string) (model.Role, error) {
	doc, err := f.docs.Get(f.root + "/" + usersCollection + "/" + uid).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return model.RoleUnknown, ErrNotFound
		}
		return model.RoleUnknown, fmt.Errorf("get user %s: %w", uid, err)
	}
	return model.ParseRole(doc.Fields["role"].StringValue), nil
}

func (f *Firestore) EnsureUser(ctx context.Context, profile model.UserProfile) (bool, error) {
	createdAt := profile.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	doc := &firestore.Document{Fields: map[string]firestore.Value{
		"name":      stringValue(profile.Name),
		"email":     stringValue(profile.Email),
		"createdAt": {TimestampValue: createdAt.UTC().Format(time.RFC3339Nano)},
	}}
	_, err := f.docs.CreateDocument(f.root, usersCollection, doc).
		DocumentId(profile.UserID).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusConflict) {
			return false, nil
		}
		return false, fmt.Errorf("create user %s: %w", profile.UserID, err)
	}
	return true, nil
}

func (f *Firestore) LatestModel(ctx context.Context) (model.ModelRecord, error) {
	resp, err := f.docs.List(f.root, modelsCollection).
		OrderBy("timestamp desc").PageSize(1).Context(ctx).Do()
	if err != nil {
		return model.ModelRecord{}, fmt.Errorf("list models: %w", err)
	}
	if len(resp.Documents) == 0 {
		return model.ModelRecord{}, ErrNotFound
	}
	fields := resp.Documents[0].Fields
	rec := model.ModelRecord{
		BestModel: fields["bestModel"].StringValue,
		UserID:    fields["userId"].StringValue,
		Filename:  fields["filename"].StringValue,
	}
	if ts := fields["timestamp"].TimestampValue; ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
	}
	return rec, nil
}

func (f *Firestore) RecordModel(ctx context.Context, rec model.ModelRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	doc := &firestore.Document{Fields: map[string]firestore.Value{
		"bestModel": stringValue(rec.BestModel),
		"userId":    stringValue(rec.UserID),
		"filename":  stringValue(rec.Filename),
		"timestamp": {TimestampValue: ts.UTC().Format(time.RFC3339Nano)},
	}}
	if _, err := f.docs.CreateDocument(f.root, modelsCollection, doc).Context(ctx).Do(); err != nil {
		return fmt.Errorf("record model: %w", err)
	}
	return nil
}

func (f *Firestore) Close(context.Context) error { return nil }

// stringValue forces the field onto the wire so empty strings are stored.
func stringValue(s string) firestore.Value {
	return firestore.Value{StringValue: s, ForceSendFields: []string{"StringValue"}}
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
