package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kosench/shortlinks/internal/cache"
	apperrors "github.com/Kosench/shortlinks/internal/errors"
	"github.com/Kosench/shortlinks/internal/model"
	"github.com/Kosench/shortlinks/internal/repository"
	"github.com/Kosench/shortlinks/internal/utils"
)

const (
	DefaultLinkTTL               = 24 * time.Hour
	DefaultResolveCacheTTL       = 300 * time.Second
	DefaultMaxGenerationAttempts = 10
)

type Options struct {
	LinkTTL               time.Duration
	ResolveCacheTTL       time.Duration
	MaxGenerationAttempts int
	BaseURL               string

	// Now and GenerateCode are replaced in tests.
	Now          func() time.Time
	GenerateCode func() string
}

// LinkService owns the link lifecycle: allocation, resolve, update, delete
// and expiry transitions. It holds no locks; the store's unique constraints
// break every race.
type LinkService struct {
	links repository.LinkRepository
	tags  repository.TagRepository
	tx    repository.TxManager
	cache cache.Cache
	keys  *cache.KeyBuilder
	log   zerolog.Logger

	linkTTL     time.Duration
	resolveTTL  time.Duration
	maxAttempts int
	baseURL     string
	now         func() time.Time
	generate    func() string
}

func NewLinkService(store *repository.Store, c cache.Cache, logger zerolog.Logger, opts Options) *LinkService {
	if c == nil {
		c = cache.NewNullCache()
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = DefaultLinkTTL
	}
	if opts.ResolveCacheTTL <= 0 {
		opts.ResolveCacheTTL = DefaultResolveCacheTTL
	}
	if opts.MaxGenerationAttempts <= 0 {
		opts.MaxGenerationAttempts = DefaultMaxGenerationAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GenerateCode == nil {
		opts.GenerateCode = utils.GenerateShortCode
	}

	return &LinkService{
		links:       store.Links,
		tags:        store.Tags,
		tx:          store.Tx,
		cache:       c,
		keys:        cache.DefaultKeyBuilder,
		log:         logger.With().Str("component", "link_service").Logger(),
		linkTTL:     opts.LinkTTL,
		resolveTTL:  opts.ResolveCacheTTL,
		maxAttempts: opts.MaxGenerationAttempts,
		baseURL:     opts.BaseURL,
		now:         opts.Now,
		generate:    opts.GenerateCode,
	}
}

// Create allocates a short code for the URL. A custom alias is taken as is
// or rejected; generated codes are retried until a free one is inserted.
func (s *LinkService) Create(ctx context.Context, req model.CreateLinkRequest, caller model.Identity) (*model.CreateLinkResponse, error) {
	originalURL := utils.NormalizeURL(req.OriginalURL)
	if err := utils.ValidateURL(originalURL); err != nil {
		return nil, err
	}

	alias := ""
	if req.CustomAlias != nil {
		alias = strings.TrimSpace(*req.CustomAlias)
	}
	if alias != "" {
		if err := utils.ValidateAlias(alias); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	link := &model.Link{
		OriginalURL: originalURL,
		OwnerID:     caller.OwnerRef(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.linkTTL),
		IsActive:    true,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.TagName != nil {
			tag, err := s.resolveTag(ctx, *req.TagName)
			if err != nil {
				return err
			}
			if tag != nil {
				link.TagID = &tag.ID
				link.TagName = &tag.Name
			}
		}

		if alias != "" {
			return s.insertAlias(ctx, link, alias)
		}
		return s.insertGenerated(ctx, link)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("short_code", link.ShortCode).
		Bool("custom_alias", alias != "").
		Bool("anonymous", caller.IsAnonymous()).
		Msg("link created")

	return &model.CreateLinkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    s.buildShortURL(link.ShortCode),
		OriginalURL: link.OriginalURL,
	}, nil
}

func (s *LinkService) insertAlias(ctx context.Context, link *model.Link, alias string) error {
	exists, err := s.links.ExistsByShortCode(ctx, alias)
	if err != nil {
		return apperrors.NewStorageError("failed to check short code", err)
	}
	if exists {
		return apperrors.ErrAliasTaken
	}

	link.ShortCode = alias
	if err := s.links.Create(ctx, link); err != nil {
		// Проиграли гонку за алиас: повторять нельзя
		if errors.Is(err, repository.ErrShortCodeExists) {
			return apperrors.ErrAliasTaken
		}
		return apperrors.NewStorageError("failed to create link", err)
	}
	return nil
}

func (s *LinkService) insertGenerated(ctx context.Context, link *model.Link) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code := s.generate()

		// Проверяем уникальность
		exists, err := s.links.ExistsByShortCode(ctx, code)
		if err != nil {
			return apperrors.NewStorageError("failed to check short code", err)
		}
		if exists {
			continue
		}

		link.ShortCode = code
		err = s.links.Create(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrShortCodeExists) {
			return apperrors.NewStorageError("failed to create link", err)
		}
		// код заняли между проверкой и вставкой, пробуем еще раз
	}

	s.log.Error().Int("attempts", s.maxAttempts).Msg("short code generation exhausted")
	return apperrors.ErrGenerationExhausted
}

// resolveTag looks the tag up case-insensitively and creates it on first
// use. A concurrent creator winning the insert is recovered by re-reading.
// A blank name resolves to no tag.
func (s *LinkService) resolveTag(ctx context.Context, rawName string) (*model.Tag, error) {
	name := utils.SanitizeInput(rawName)
	if name == "" {
		return nil, nil
	}

	tag, err := s.tags.GetByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, repository.ErrTagNotFound) {
		return nil, apperrors.NewStorageError("failed to get tag", err)
	}

	tag = &model.Tag{Name: name}
	err = s.tags.Create(ctx, tag)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, repository.ErrTagExists) {
		return nil, apperrors.NewStorageError("failed to create tag", err)
	}

	tag, err = s.tags.GetByName(ctx, name)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to get tag", err)
	}
	return tag, nil
}

// Resolve returns the destination for shortCode. Cache hits skip click
// accounting; misses read the active record, expire it lazily or count the
// click and populate the cache.
func (s *LinkService) Resolve(ctx context.Context, shortCode string) (string, error) {
	if shortCode == "" {
		return "", apperrors.ErrNotFound
	}

	key := s.keys.Short(shortCode)
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.cacheDegraded(err, "get", key)
	}

	link, err := s.links.GetActiveByShortCode(ctx, shortCode)
	if errors.Is(err, repository.ErrLinkNotFound) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", apperrors.NewStorageError("failed to get link", err)
	}

	now := s.now().UTC()
	if link.ExpiredAt(now) {
		if _, err := s.links.Deactivate(ctx, link.ID); err != nil {
			return "", apperrors.NewStorageError("failed to deactivate link", err)
		}
		s.log.Info().Str("short_code", shortCode).Msg("link expired on resolve")
		return "", apperrors.ErrExpired
	}

	currentURL, err := s.links.RecordClick(ctx, link.ID, now)
	if err != nil {
		// удалена между чтением и обновлением
		if errors.Is(err, repository.ErrLinkNotFound) {
			return "", apperrors.ErrNotFound
		}
		return "", apperrors.NewStorageError("failed to record click", err)
	}

	// изменена между чтением и кликом: кэш не заполняем, Update его уже сбросил
	if currentURL != link.OriginalURL {
		s.log.Debug().Str("short_code", shortCode).Msg("link changed during resolve, cache fill skipped")
		return currentURL, nil
	}

	if err := s.cache.Set(ctx, key, link.OriginalURL, s.resolveTTL); err != nil {
		s.cacheDegraded(err, "set", key)
	}

	return link.OriginalURL, nil
}

// Update changes URL and/or tag of the caller's link and extends its life.
// The cached resolve entry is always dropped afterwards.
func (s *LinkService) Update(ctx context.Context, shortCode string, req model.UpdateLinkRequest, caller model.Identity) (*model.UpdateLinkResponse, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.ErrNotFoundOrForbidden
	}

	// пустая строка означает "не менять"
	var newURL string
	if req.OriginalURL != nil && strings.TrimSpace(*req.OriginalURL) != "" {
		newURL = utils.NormalizeURL(*req.OriginalURL)
		if err := utils.ValidateURL(newURL); err != nil {
			return nil, err
		}
	}

	var link *model.Link
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		link, err = s.links.GetByShortCodeAndOwner(ctx, shortCode, caller.OwnerID)
		if errors.Is(err, repository.ErrLinkNotFound) {
			return apperrors.ErrNotFoundOrForbidden
		}
		if err != nil {
			return apperrors.NewStorageError("failed to get link", err)
		}

		if newURL != "" {
			link.OriginalURL = newURL
		}

		if req.TagName != nil {
			tag, err := s.resolveTag(ctx, *req.TagName)
			if err != nil {
				return err
			}
			link.TagID, link.TagName = nil, nil
			if tag != nil {
				link.TagID = &tag.ID
				link.TagName = &tag.Name
			}
		}

		link.ExpiresAt = s.now().UTC().Add(s.linkTTL)
		link.IsActive = true

		if err := s.links.Update(ctx, link); err != nil {
			if errors.Is(err, repository.ErrLinkNotFound) {
				return apperrors.ErrNotFoundOrForbidden
			}
			return apperrors.NewStorageError("failed to update link", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, shortCode)

	return &model.UpdateLinkResponse{
		Message:     "link updated",
		ShortCode:   link.ShortCode,
		ShortURL:    s.buildShortURL(link.ShortCode),
		OriginalURL: link.OriginalURL,
		ExpiresAt:   link.ExpiresAt,
	}, nil
}

// Delete removes the caller's link and leaves a best-effort audit record.
func (s *LinkService) Delete(ctx context.Context, shortCode string, caller model.Identity) error {
	if caller.IsAnonymous() {
		return apperrors.ErrNotFoundOrForbidden
	}

	link, err := s.links.GetByShortCodeAndOwner(ctx, shortCode, caller.OwnerID)
	if errors.Is(err, repository.ErrLinkNotFound) {
		return apperrors.ErrNotFoundOrForbidden
	}
	if err != nil {
		return apperrors.NewStorageError("failed to get link", err)
	}

	if err := s.links.Delete(ctx, link.ID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return apperrors.ErrNotFoundOrForbidden
		}
		return apperrors.NewStorageError("failed to delete link", err)
	}

	s.invalidate(ctx, shortCode)

	tagName := ""
	if link.TagName != nil {
		tagName = *link.TagName
	}
	archiveKey := s.keys.Archive(shortCode)
	if err := s.cache.Archive(ctx, archiveKey, map[string]string{
		"url":        link.OriginalURL,
		"tag":        tagName,
		"deleted_at": s.now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.cacheDegraded(err, "archive", archiveKey)
	}

	s.log.Info().Str("short_code", shortCode).Msg("link deleted")
	return nil
}

// Search matches a URL substring and/or a tag name, both case-insensitive.
// No matches is reported as ErrNotFound, not as an empty list.
func (s *LinkService) Search(ctx context.Context, originalURL, tagName string) ([]model.SearchResult, error) {
	filter := model.SearchFilter{
		OriginalURL: utils.NormalizeURL(originalURL),
		TagName:     utils.SanitizeInput(tagName),
	}

	links, err := s.links.Search(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to search links", err)
	}
	if len(links) == 0 {
		return nil, apperrors.ErrNotFound
	}

	results := make([]model.SearchResult, 0, len(links))
	for _, l := range links {
		results = append(results, model.SearchResult{
			ShortCode:   l.ShortCode,
			OriginalURL: l.OriginalURL,
			TagName:     l.TagName,
		})
	}
	return results, nil
}

func (s *LinkService) Stats(ctx context.Context, shortCode string) (*model.LinkStats, error) {
	link, err := s.links.GetByShortCode(ctx, shortCode)
	if errors.Is(err, repository.ErrLinkNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to get link", err)
	}

	stats := model.NewLinkStats(link)
	return &stats, nil
}

// ExpiredLinksForOwner lists the caller's inactive links, newest first.
func (s *LinkService) ExpiredLinksForOwner(ctx context.Context, caller model.Identity) (*model.InactiveLinks, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.ErrUnauthorized
	}

	links, err := s.links.ListInactiveByOwner(ctx, caller.OwnerID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list inactive links", err)
	}

	result := &model.InactiveLinks{Links: make([]model.LinkStats, 0, len(links))}
	for i := range links {
		result.Links = append(result.Links, model.NewLinkStats(&links[i]))
	}
	return result, nil
}

func (s *LinkService) invalidate(ctx context.Context, shortCode string) {
	key := s.keys.Short(shortCode)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.cacheDegraded(err, "delete", key)
	}
}

func (s *LinkService) cacheDegraded(err error, op, key string) {
	s.log.Warn().Err(err).Str("op", op).Str("key", key).Msg("cache degraded, falling back to store")
}

func (s *LinkService) buildShortURL(shortCode string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, shortCode)
}
