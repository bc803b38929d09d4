package discoverer_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Houeta/bookwatch/internal/metrics"
	"github.com/Houeta/bookwatch/internal/models"
	"github.com/Houeta/bookwatch/internal/repository"
	"github.com/Houeta/bookwatch/internal/services/discoverer"
	"github.com/Houeta/bookwatch/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://books.example.com"

func newDiscoverer(repo *mocks.Repository, bookParser *mocks.BookParser) *discoverer.Discoverer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return discoverer.New(logger, repo, bookParser, metrics.New(prometheus.NewRegistry()), baseURL)
}

// expectTermination wires page 2 as the catalog's 404 page.
func expectTermination(ctx any, mFetch *mocks.Fetcher, mParser *mocks.BookParser, mRepo *mocks.Repository, pagesWalked string) {
	pageURL := baseURL + "/catalogue/page-2.html"
	mFetch.On("Fetch", ctx, pageURL).Return("not-found-page", nil).Once()
	mParser.On("ExtractBookLinks", "not-found-page", pageURL).Return(nil, nil).Once()
	mParser.On("IsNotFoundPage", "not-found-page").Return(true).Once()
	mRepo.On("SetState", ctx, discoverer.LastPageStateKey, pagesWalked).Return(nil).Once()
}

func TestDiscover_NewBookInserted(t *testing.T) {
	ctx := testContext(t)
	mRepo := new(mocks.Repository)
	mParser := new(mocks.BookParser)
	mFetch := new(mocks.Fetcher)

	link := baseURL + "/catalogue/a-light-in-the-attic_1000/index.html"

	mFetch.On("Fetch", ctx, baseURL).Return("index-1", nil).Once()
	mParser.On("ExtractBookLinks", "index-1", baseURL).Return([]string{link}, nil).Once()

	mRepo.On("FindByURL", ctx, link).Return(nil, repository.ErrBookNotFound).Once()
	mFetch.On("Fetch", ctx, link).Return("detail-html", nil).Once()

	parsed := &models.Book{
		SourceURL:    link,
		Name:         models.StrPtr("A Light in the Attic"),
		PriceInclTax: models.FloatPtr(51.77),
		RawHTML:      "detail-html",
	}
	mParser.On("ParseBook", "detail-html", link).Return(parsed, nil).Once()

	var stored *models.Book
	mRepo.On("Upsert", ctx, mock.AnythingOfType("*models.Book")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.Book) }).
		Return(nil).Once()
	mRepo.On("AppendChange", ctx, mock.AnythingOfType("*models.ChangeRecord")).Return(nil).Once()

	expectTermination(ctx, mFetch, mParser, mRepo, "1")

	records, err := newDiscoverer(mRepo, mParser).Discover(ctx, mFetch)
	require.NoError(t, err)

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, models.ChangeNew, rec.Kind)
	assert.Equal(t, link, rec.SourceURL)
	assert.Equal(t, models.CreationMarker(), rec.ChangedFields)
	assert.Nil(t, rec.OldSnapshot)
	require.NotNil(t, rec.NewSnapshot)

	require.NotNil(t, stored)
	assert.Len(t, stored.ContentHash, 64)
	assert.False(t, stored.Meta.FirstSeenAt.IsZero())
	assert.Equal(t, stored.Meta.FirstSeenAt, stored.Meta.LastSeenAt)

	mRepo.AssertExpectations(t)
	mParser.AssertExpectations(t)
	mFetch.AssertExpectations(t)
}

func TestDiscover_KnownURLSkippedWithoutFetch(t *testing.T) {
	ctx := testContext(t)
	mRepo := new(mocks.Repository)
	mParser := new(mocks.BookParser)
	mFetch := new(mocks.Fetcher)

	link := baseURL + "/catalogue/known_1/index.html"

	mFetch.On("Fetch", ctx, baseURL).Return("index-1", nil).Once()
	mParser.On("ExtractBookLinks", "index-1", baseURL).Return([]string{link}, nil).Once()
	mRepo.On("FindByURL", ctx, link).Return(&models.Book{SourceURL: link}, nil).Once()

	expectTermination(ctx, mFetch, mParser, mRepo, "1")

	records, err := newDiscoverer(mRepo, mParser).Discover(ctx, mFetch)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Only the two index pages were fetched; the known detail page was not.
	mFetch.AssertNumberOfCalls(t, "Fetch", 2)
	mRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	mRepo.AssertExpectations(t)
}

func TestDiscover_ZeroLinksStopsImmediately(t *testing.T) {
	ctx := testContext(t)
	mRepo := new(mocks.Repository)
	mParser := new(mocks.BookParser)
	mFetch := new(mocks.Fetcher)

	mFetch.On("Fetch", ctx, baseURL).Return("rendered-but-empty", nil).Once()
	mParser.On("ExtractBookLinks", "rendered-but-empty", baseURL).Return(nil, nil).Once()
	mParser.On("IsNotFoundPage", "rendered-but-empty").Return(false).Once()
	mRepo.On("SetState", ctx, discoverer.LastPageStateKey, "0").Return(nil).Once()

	records, err := newDiscoverer(mRepo, mParser).Discover(ctx, mFetch)
	require.NoError(t, err)
	assert.Empty(t, records)

	mFetch.AssertNumberOfCalls(t, "Fetch", 1)
	mRepo.AssertExpectations(t)
}

func TestDiscover_IndexFetchFailureAbortsPass(t *testing.T) {
	ctx := testContext(t)
	mRepo := new(mocks.Repository)
	mParser := new(mocks.BookParser)
	mFetch := new(mocks.Fetcher)

	mFetch.On("Fetch", ctx, baseURL).Return("", assert.AnError).Once()

	records, err := newDiscoverer(mRepo, mParser).Discover(ctx, mFetch)
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, records)

	mRepo.AssertNotCalled(t, "SetState", mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscover_ItemFailureSkipsAndContinues(t *testing.T) {
	ctx := testContext(t)
	mRepo := new(mocks.Repository)
	mParser := new(mocks.BookParser)
	mFetch := new(mocks.Fetcher)

	badLink := baseURL + "/catalogue/broken_1/index.html"
	goodLink := baseURL + "/catalogue/fine_2/index.html"

	mFetch.On("Fetch", ctx, baseURL).Return("index-1", nil).Once()
	mParser.On("ExtractBookLinks", "index-1", baseURL).Return([]string{badLink, goodLink}, nil).Once()

	mRepo.On("FindByURL", ctx, badLink).Return(nil, repository.ErrBookNotFound).Once()
	mFetch.On("Fetch", ctx, badLink).Return("", assert.AnError).Once()

	mRepo.On("FindByURL", ctx, goodLink).Return(nil, repository.ErrBookNotFound).Once()
	mFetch.On("Fetch", ctx, goodLink).Return("good-html", nil).Once()
	mParser.On("ParseBook", "good-html", goodLink).
		Return(&models.Book{SourceURL: goodLink, Name: models.StrPtr("Fine"), RawHTML: "good-html"}, nil).Once()
	mRepo.On("Upsert", ctx, mock.AnythingOfType("*models.Book")).Return(nil).Once()
	mRepo.On("AppendChange", ctx, mock.AnythingOfType("*models.ChangeRecord")).Return(nil).Once()

	expectTermination(ctx, mFetch, mParser, mRepo, "1")

	records, err := newDiscoverer(mRepo, mParser).Discover(ctx, mFetch)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, goodLink, records[0].SourceURL)
	mRepo.AssertExpectations(t)
}

func TestDiscover_StorageFailureSkipsChangeRecord(t *testing.T) {
	ctx := testContext(t)
	mRepo := new(mocks.Repository)
	mParser := new(mocks.BookParser)
	mFetch := new(mocks.Fetcher)

	link := baseURL + "/catalogue/unlucky_3/index.html"

	mFetch.On("Fetch", ctx, baseURL).Return("index-1", nil).Once()
	mParser.On("ExtractBookLinks", "index-1", baseURL).Return([]string{link}, nil).Once()
	mRepo.On("FindByURL", ctx, link).Return(nil, repository.ErrBookNotFound).Once()
	mFetch.On("Fetch", ctx, link).Return("html", nil).Once()
	mParser.On("ParseBook", "html", link).
		Return(&models.Book{SourceURL: link, Name: models.StrPtr("Unlucky"), RawHTML: "html"}, nil).Once()
	mRepo.On("Upsert", ctx, mock.AnythingOfType("*models.Book")).Return(assert.AnError).Once()

	expectTermination(ctx, mFetch, mParser, mRepo, "1")

	records, err := newDiscoverer(mRepo, mParser).Discover(ctx, mFetch)
	require.NoError(t, err)

	assert.Empty(t, records)
	mRepo.AssertNotCalled(t, "AppendChange", mock.Anything, mock.Anything)
}
