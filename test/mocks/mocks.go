// Package mocks provides testify mocks for the pipeline's collaborator
// contracts.
package mocks

import (
	"context"

	"github.com/Houeta/bookwatch/internal/fetcher"
	"github.com/Houeta/bookwatch/internal/models"
	"github.com/stretchr/testify/mock"
)

// Repository mocks repository.Interface.
type Repository struct {
	mock.Mock
}

func (m *Repository) FindByURL(ctx context.Context, sourceURL string) (*models.Book, error) {
	args := m.Called(ctx, sourceURL)
	var book *models.Book
	if v := args.Get(0); v != nil {
		book = v.(*models.Book)
	}
	return book, args.Error(1)
}

func (m *Repository) Upsert(ctx context.Context, book *models.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *Repository) ListAll(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	var books []models.Book
	if v := args.Get(0); v != nil {
		books = v.([]models.Book)
	}
	return books, args.Error(1)
}

func (m *Repository) AppendChange(ctx context.Context, change *models.ChangeRecord) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *Repository) GetState(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *Repository) SetState(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// BookParser mocks parser.BookParser.
type BookParser struct {
	mock.Mock
}

func (m *BookParser) ParseBook(html, sourceURL string) (*models.Book, error) {
	args := m.Called(html, sourceURL)
	var book *models.Book
	if v := args.Get(0); v != nil {
		book = v.(*models.Book)
	}
	return book, args.Error(1)
}

func (m *BookParser) ExtractBookLinks(html, pageURL string) ([]string, error) {
	args := m.Called(html, pageURL)
	var links []string
	if v := args.Get(0); v != nil {
		links = v.([]string)
	}
	return links, args.Error(1)
}

func (m *BookParser) IsNotFoundPage(html string) bool {
	args := m.Called(html)
	return args.Bool(0)
}

// Fetcher mocks fetcher.Fetcher.
type Fetcher struct {
	mock.Mock
}

func (m *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	args := m.Called(ctx, pageURL)
	return args.String(0), args.Error(1)
}

// Session mocks fetcher.Session.
type Session struct {
	mock.Mock
}

func (m *Session) Fetch(ctx context.Context, pageURL string) (string, error) {
	args := m.Called(ctx, pageURL)
	return args.String(0), args.Error(1)
}

func (m *Session) Close() error {
	args := m.Called()
	return args.Error(0)
}

// SessionFactory mocks fetcher.Factory.
type SessionFactory struct {
	mock.Mock
}

func (m *SessionFactory) NewSession(ctx context.Context) (fetcher.Session, error) {
	args := m.Called(ctx)
	var session fetcher.Session
	if v := args.Get(0); v != nil {
		session = v.(fetcher.Session)
	}
	return session, args.Error(1)
}

// Discoverer mocks cycle.Discoverer.
type Discoverer struct {
	mock.Mock
}

func (m *Discoverer) Discover(ctx context.Context, fetch fetcher.Fetcher) ([]models.ChangeRecord, error) {
	args := m.Called(ctx, fetch)
	var records []models.ChangeRecord
	if v := args.Get(0); v != nil {
		records = v.([]models.ChangeRecord)
	}
	return records, args.Error(1)
}

// Detector mocks cycle.Detector.
type Detector struct {
	mock.Mock
}

func (m *Detector) Detect(ctx context.Context, fetch fetcher.Fetcher) ([]models.ChangeRecord, error) {
	args := m.Called(ctx, fetch)
	var records []models.ChangeRecord
	if v := args.Get(0); v != nil {
		records = v.([]models.ChangeRecord)
	}
	return records, args.Error(1)
}

// Sink mocks cycle.Sink.
type Sink struct {
	mock.Mock
}

func (m *Sink) Deliver(ctx context.Context, changes []models.ChangeRecord) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

// ReportWriter mocks cycle.ReportWriter.
type ReportWriter struct {
	mock.Mock
}

func (m *ReportWriter) Write(changes []models.ChangeRecord) (string, error) {
	args := m.Called(changes)
	return args.String(0), args.Error(1)
}
