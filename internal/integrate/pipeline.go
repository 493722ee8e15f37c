package integrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danjilab/integration-engine/internal/cache"
	"github.com/danjilab/integration-engine/internal/cleaner"
	"github.com/danjilab/integration-engine/internal/match"
	"github.com/danjilab/integration-engine/internal/monitoring"
	"github.com/danjilab/integration-engine/internal/observability"
	"github.com/danjilab/integration-engine/internal/quality"
	"github.com/danjilab/integration-engine/internal/source"
	"github.com/danjilab/integration-engine/internal/storage"
	"github.com/danjilab/integration-engine/internal/validate"
)

// Deps wires the pipeline's collaborators. ListingFeed and TransactionFeed
// may be nil when a feed is not configured for the run.
type Deps struct {
	Repos           *storage.Repositories
	ListingFeed     source.ListingFeed
	TransactionFeed source.TransactionFeed
	Validator       *validate.Validator
	Matching        match.Config
	Cache           cache.Client
	Monitor         *monitoring.Monitor
	Logger          *observability.Logger
	Auditor         *quality.Auditor
	CacheTTL        time.Duration
	AlertThreshold  float64
}

// Pipeline executes one batch integration run end to end.
type Pipeline struct {
	deps     Deps
	index    *match.Index
	resolver *match.Resolver
}

// NewPipeline creates a pipeline. The in-memory match index is built fresh at
// the start of each run from the stored canonical set.
func NewPipeline(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if deps.Validator == nil {
		deps.Validator = validate.NewValidator(validate.Config{})
	}
	if deps.AlertThreshold == 0 {
		deps.AlertThreshold = 70
	}

	tolerance := deps.Matching.CoordinateTolerance
	if tolerance == 0 {
		tolerance = 0.0001
	}
	index := match.NewIndex(tolerance)

	return &Pipeline{
		deps:     deps,
		index:    index,
		resolver: match.NewResolver(index, deps.Matching),
	}
}

// Run executes the full phase sequence and persists the run report. The
// returned report is always non-nil once the run row was created.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	run := &storage.IntegrationRun{Status: storage.RunStatusRunning}
	if err := p.deps.Repos.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	report := NewReport(run.ID)
	logger := p.deps.Logger.WithRun(run.ID.String())
	logger.Info().Msg("integration run started")

	err := p.execute(ctx, run.ID, report, logger)

	report.CompletedAt = time.Now()
	if err != nil {
		report.Status = string(storage.RunStatusFailed)
		report.Errors = append(report.Errors, err.Error())
		run.Status = storage.RunStatusFailed
		logger.Error().Err(err).Str("phase", string(report.Phase)).Msg("integration run failed")
	} else {
		report.Status = string(storage.RunStatusSucceeded)
		report.Phase = PhaseDone
		run.Status = storage.RunStatusSucceeded
		logger.Info().
			Int("complexes_created", report.Complexes.Created).
			Int("complexes_matched", report.Complexes.Matched).
			Int("listings_matched", report.Listings.Matched).
			Int("transactions_matched", report.Transactions.Matched).
			Float64("overall_score", report.Quality.Score.Overall).
			Msg("integration run finished")
	}

	payload, merr := json.Marshal(report)
	if merr != nil {
		payload = []byte(fmt.Sprintf(`{"run_id":%q,"status":%q}`, run.ID, report.Status))
	}
	run.Report = payload
	run.ErrorCount = len(report.Errors)

	if cerr := p.deps.Repos.Runs.Complete(ctx, run); cerr != nil && err == nil {
		err = fmt.Errorf("persist run report: %w", cerr)
	}
	return report, err
}

// cleanedComplex pairs a cleaned record with the feed it came from.
type cleanedComplex struct {
	clean      *validate.CleanComplex
	sourceType string
}

func (p *Pipeline) execute(ctx context.Context, runID uuid.UUID, report *Report, logger *observability.Logger) error {
	report.Phase = PhaseExtract
	rawComplexes, rawListings, rawTransactions, err := p.extract(ctx)
	if err != nil {
		return err
	}
	p.deps.Monitor.Audit(runID, string(PhaseExtract), "feeds extracted", map[string]any{
		"complexes":    len(rawComplexes),
		"listings":     len(rawListings),
		"transactions": len(rawTransactions),
	})

	report.Phase = PhaseValidate
	complexes, listings, transactions := p.validateAll(rawComplexes, rawListings, rawTransactions, report)
	logger.WithPhase(string(PhaseValidate)).Info().
		Int("complexes_clean", len(complexes)).
		Int("listings_clean", len(listings)).
		Int("transactions_clean", len(transactions)).
		Msg("validation complete")

	report.Phase = PhaseComplexes
	existing, err := p.deps.Repos.Complexes.List(ctx)
	if err != nil {
		return fmt.Errorf("load canonical complexes: %w", err)
	}
	p.index.Load(existing)
	if err := p.warmMappingCache(ctx); err != nil {
		return err
	}
	for _, item := range complexes {
		p.guarded(report, "complex "+item.clean.SourceID, func() error {
			return p.integrateComplex(ctx, item, report, logger)
		})
	}
	p.deps.Monitor.Audit(runID, string(PhaseComplexes), "complexes integrated", map[string]any{
		"created": report.Complexes.Created,
		"merged":  report.Complexes.Merged,
	})

	report.Phase = PhaseListings
	listingSource := ""
	if p.deps.ListingFeed != nil {
		listingSource = p.deps.ListingFeed.SourceType()
	}
	for _, clean := range listings {
		clean := clean
		p.guarded(report, "listing "+clean.SourceID, func() error {
			return p.integrateListing(ctx, &clean, listingSource, report)
		})
	}

	report.Phase = PhaseTransactions
	transactionSource := ""
	if p.deps.TransactionFeed != nil {
		transactionSource = p.deps.TransactionFeed.SourceType()
	}
	for _, clean := range transactions {
		clean := clean
		p.guarded(report, "transaction "+clean.SourceID, func() error {
			return p.integrateTransaction(ctx, &clean, transactionSource, report)
		})
	}

	report.Phase = PhaseQuality
	if err := p.qualityCheck(ctx, runID, report); err != nil {
		return err
	}

	report.Phase = PhaseReport
	return nil
}

func (p *Pipeline) extract(ctx context.Context) ([]source.ComplexRecord, []source.ListingRecord, []source.TransactionRecord, error) {
	var complexes []source.ComplexRecord
	var listings []source.ListingRecord
	var transactions []source.TransactionRecord

	if p.deps.ListingFeed != nil {
		var err error
		if complexes, err = p.deps.ListingFeed.Complexes(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("extract complexes: %w", err)
		}
		if listings, err = p.deps.ListingFeed.Listings(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("extract listings: %w", err)
		}
	}
	if p.deps.TransactionFeed != nil {
		var err error
		if transactions, err = p.deps.TransactionFeed.Transactions(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("extract transactions: %w", err)
		}
	}
	return complexes, listings, transactions, nil
}

func (p *Pipeline) validateAll(
	rawComplexes []source.ComplexRecord,
	rawListings []source.ListingRecord,
	rawTransactions []source.TransactionRecord,
	report *Report,
) ([]cleanedComplex, []validate.CleanListing, []validate.CleanTransaction) {
	listingSource := ""
	if p.deps.ListingFeed != nil {
		listingSource = p.deps.ListingFeed.SourceType()
	}

	report.Complexes.Processed = len(rawComplexes)
	report.Listings.Processed = len(rawListings)
	report.Transactions.Processed = len(rawTransactions)

	var complexes []cleanedComplex
	for _, rec := range rawComplexes {
		result := p.deps.Validator.ValidateComplex(rec)
		report.Validation.Complexes.Record(rec.SourceID, result.Errors, result.Warnings, len(result.Warnings) > 0)
		if result.Cleaned == nil {
			report.Complexes.Dropped++
			continue
		}
		complexes = append(complexes, cleanedComplex{clean: result.Cleaned, sourceType: listingSource})
	}

	var listings []validate.CleanListing
	for _, rec := range rawListings {
		result := p.deps.Validator.ValidateListing(rec)
		report.Validation.Listings.Record(rec.SourceID, result.Errors, result.Warnings, len(result.Warnings) > 0)
		if result.Cleaned == nil {
			report.Listings.Dropped++
			continue
		}
		listings = append(listings, *result.Cleaned)
	}

	var transactions []validate.CleanTransaction
	for _, rec := range rawTransactions {
		result := p.deps.Validator.ValidateTransaction(rec)
		report.Validation.Transactions.Record(rec.SourceID, result.Errors, result.Warnings, len(result.Warnings) > 0)
		if result.Cleaned == nil {
			report.Transactions.Dropped++
			continue
		}
		transactions = append(transactions, *result.Cleaned)
	}

	// Feed-level consistency check: listings whose complex never appeared in
	// the same batch. Mapping-level orphans are counted again at link time.
	knownIDs := make(map[string]bool, len(complexes))
	for _, item := range complexes {
		knownIDs[item.clean.SourceID] = true
	}
	report.Validation.CrossCheck = validate.CheckOrphanedListings(listings, knownIDs)

	return complexes, listings, transactions
}

// integrateComplex runs the mapping short-circuit, then the matching tiers,
// creating or merging the canonical row.
func (p *Pipeline) integrateComplex(ctx context.Context, item cleanedComplex, report *Report, logger *observability.Logger) error {
	clean := item.clean

	if complexID, ok, err := p.lookupMapping(ctx, item.sourceType, clean.SourceID); err != nil {
		return err
	} else if ok {
		// Seen before from this source: refresh fields, never re-match.
		complex, found := p.index.Get(complexID)
		if !found {
			var gerr error
			complex, gerr = p.deps.Repos.Complexes.GetByID(ctx, complexID)
			if gerr != nil {
				return fmt.Errorf("mapped complex %s: %w", complexID, gerr)
			}
		}
		if MergeCanonicalFields(complex, clean, item.sourceType, 0) {
			if err := p.deps.Repos.Complexes.Update(ctx, complex); err != nil {
				return fmt.Errorf("update complex %s: %w", complex.ID, err)
			}
			p.index.Update(complex)
		}
		report.Complexes.Matched++
		report.Complexes.Remapped++
		return nil
	}

	candidate := match.Candidate{
		Name:      clean.Name,
		Latitude:  clean.Latitude,
		Longitude: clean.Longitude,
		Sigungu:   clean.Region.Sigungu,
	}
	if clean.AddressJibun != nil {
		candidate.Jibun = cleaner.NormalizeAddress(*clean.AddressJibun)
	}
	if clean.AddressRoad != nil {
		candidate.Road = cleaner.NormalizeAddress(*clean.AddressRoad)
	}

	if result := p.resolver.Resolve(candidate); result != nil {
		complex, found := p.index.Get(result.ComplexID)
		if !found {
			return fmt.Errorf("matched complex %s missing from index", result.ComplexID)
		}
		if MergeCanonicalFields(complex, clean, item.sourceType, result.Confidence) {
			if err := p.deps.Repos.Complexes.Update(ctx, complex); err != nil {
				return fmt.Errorf("update complex %s: %w", complex.ID, err)
			}
			p.index.Update(complex)
		}
		if err := p.storeMapping(ctx, item.sourceType, clean.SourceID, complex.ID); err != nil {
			return err
		}
		report.Complexes.Matched++
		report.Complexes.Merged++
		report.Complexes.MatchedBy[string(result.Method)]++
		logger.Debug().
			Str("source_id", clean.SourceID).
			Str("method", string(result.Method)).
			Float64("confidence", result.Confidence).
			Msg("complex matched")
		return nil
	}

	complex := NewCanonicalComplex(clean, item.sourceType)
	if err := p.deps.Repos.Complexes.Create(ctx, complex); err != nil {
		return fmt.Errorf("create complex for %s: %w", clean.SourceID, err)
	}
	p.index.Add(complex)
	if err := p.storeMapping(ctx, item.sourceType, clean.SourceID, complex.ID); err != nil {
		return err
	}
	report.Complexes.Created++
	return nil
}

func (p *Pipeline) integrateListing(ctx context.Context, clean *validate.CleanListing, sourceType string, report *Report) error {
	complexID, ok, err := p.lookupMapping(ctx, sourceType, clean.ComplexSourceID)
	if err != nil {
		return err
	}
	if !ok {
		report.Listings.Orphaned++
		return nil
	}

	listing := &storage.Listing{
		ComplexID:     complexID,
		DealType:      clean.DealType,
		AreaExclusive: clean.AreaExclusive,
		AreaSupply:    clean.AreaSupply,
		Direction:     clean.Direction,
		RoomStructure: clean.RoomStructure,
		Description:   clean.Description,
		Status:        storage.ListingStatusActive,
		CrawledAt:     clean.CrawledAt,
	}
	switch clean.DealType {
	case cleaner.DealTypeSale:
		listing.PriceSale = clean.PriceSale
	case cleaner.DealTypeJeonse:
		listing.PriceJeonse = clean.Deposit
	default:
		listing.PriceMonthly = clean.MonthlyRent
		listing.Deposit = clean.Deposit
	}
	if clean.Floor != nil {
		current := clean.Floor.Current
		listing.FloorCurrent = &current
		listing.FloorTotal = clean.Floor.Total
	}

	if err := p.deps.Repos.Listings.Create(ctx, listing); err != nil {
		return fmt.Errorf("create listing %s: %w", clean.SourceID, err)
	}
	report.Listings.Matched++
	return nil
}

func (p *Pipeline) integrateTransaction(ctx context.Context, clean *validate.CleanTransaction, sourceType string, report *Report) error {
	exists, err := p.deps.Repos.Transactions.ExistsByOrigin(ctx, sourceType, clean.SourceID)
	if err != nil {
		return fmt.Errorf("check transaction %s: %w", clean.SourceID, err)
	}
	if exists {
		report.Transactions.Dropped++
		return nil
	}

	result := p.resolver.ResolveTransaction(clean.ApartmentName, clean.RegionName)
	if result == nil {
		report.Transactions.Orphaned++
		return nil
	}

	record := &storage.TransactionRecord{
		ComplexID:        result.ComplexID,
		DealType:         clean.DealType,
		DealDate:         clean.DealDate,
		DealAmount:       clean.DealAmount,
		MonthlyRent:      clean.MonthlyRent,
		AreaExclusive:    clean.AreaExclusive,
		BuildingName:     clean.BuildingName,
		UnitNumber:       clean.UnitNumber,
		DataSource:       sourceType,
		OriginalRecordID: clean.SourceID,
	}
	if clean.Floor != nil {
		current := clean.Floor.Current
		record.FloorCurrent = &current
	}

	if err := p.deps.Repos.Transactions.Create(ctx, record); err != nil {
		return fmt.Errorf("create transaction %s: %w", clean.SourceID, err)
	}
	report.Transactions.Matched++
	return nil
}

func (p *Pipeline) qualityCheck(ctx context.Context, runID uuid.UUID, report *Report) error {
	report.Quality.Complexes = quality.ScoreCategory(report.Validation.Complexes)
	report.Quality.Listings = quality.ScoreCategory(report.Validation.Listings)
	report.Quality.Transactions = quality.ScoreCategory(report.Validation.Transactions)
	report.Quality.Score = quality.ScoreRun(
		report.Validation.Complexes, report.Validation.Listings, report.Validation.Transactions,
	)

	if p.deps.Auditor != nil {
		audit, err := p.deps.Auditor.Run(ctx)
		if err != nil {
			return fmt.Errorf("structural audit: %w", err)
		}
		report.Quality.Audit = audit
	}

	if report.Quality.Score.Overall < p.deps.AlertThreshold {
		p.deps.Monitor.PublishQualityAlert(ctx, monitoring.QualityAlert{
			RunID:        runID,
			OverallScore: report.Quality.Score.Overall,
			Threshold:    p.deps.AlertThreshold,
			ErrorCount:   len(report.Errors),
		})
	}
	return nil
}

// guarded runs one record's integration with panic recovery so a single bad
// record cannot take down the batch.
func (p *Pipeline) guarded(report *Report, label string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: panic: %v", label, r))
		}
	}()
	if err := fn(); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", label, err))
	}
}

func mappingKey(sourceType, sourceID string) string {
	return "mapping:" + sourceType + ":" + sourceID
}

// warmMappingCache preloads the stored mappings for the run's feeds so the
// first sighting of each known source id hits the cache instead of the
// database.
func (p *Pipeline) warmMappingCache(ctx context.Context) error {
	var sourceTypes []string
	if p.deps.ListingFeed != nil {
		sourceTypes = append(sourceTypes, p.deps.ListingFeed.SourceType())
	}
	if p.deps.TransactionFeed != nil {
		sourceTypes = append(sourceTypes, p.deps.TransactionFeed.SourceType())
	}

	for _, sourceType := range sourceTypes {
		mappings, err := p.deps.Repos.SourceMappings.ListByType(ctx, sourceType)
		if err != nil {
			return fmt.Errorf("warm mapping cache for %s: %w", sourceType, err)
		}
		for _, mapping := range mappings {
			p.deps.Cache.Set(ctx, mappingKey(mapping.SourceType, mapping.SourceID),
				mapping.ComplexID.String(), p.deps.CacheTTL)
		}
	}
	return nil
}

// lookupMapping resolves a source identity through the cache, then the
// mapping table.
func (p *Pipeline) lookupMapping(ctx context.Context, sourceType, sourceID string) (uuid.UUID, bool, error) {
	key := mappingKey(sourceType, sourceID)
	if cached, ok, err := p.deps.Cache.Get(ctx, key); err == nil && ok {
		if id, perr := uuid.Parse(cached); perr == nil {
			return id, true, nil
		}
	}

	mapping, err := p.deps.Repos.SourceMappings.Get(ctx, sourceType, sourceID)
	if errors.Is(err, storage.ErrNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("lookup mapping %s/%s: %w", sourceType, sourceID, err)
	}

	p.deps.Cache.Set(ctx, key, mapping.ComplexID.String(), p.deps.CacheTTL)
	return mapping.ComplexID, true, nil
}

func (p *Pipeline) storeMapping(ctx context.Context, sourceType, sourceID string, complexID uuid.UUID) error {
	mapping := &storage.SourceMapping{
		ComplexID:  complexID,
		SourceType: sourceType,
		SourceID:   sourceID,
	}
	if err := p.deps.Repos.SourceMappings.Create(ctx, mapping); err != nil {
		return fmt.Errorf("create mapping %s/%s: %w", sourceType, sourceID, err)
	}
	p.deps.Cache.Set(ctx, mappingKey(sourceType, sourceID), complexID.String(), p.deps.CacheTTL)
	return nil
}
