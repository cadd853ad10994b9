package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"davo_admin/models"

	"github.com/sirupsen/logrus"
)

// ErrLoadSuperseded загрузка отменена более новой загрузкой той же панели
var ErrLoadSuperseded = errors.New("загрузка списка заменена более новой")

// maxListPages ограничение на число страниц при загрузке полного списка
const maxListPages = 1000

// MarketPanel состояние панели одной сессии: единственный полный набор аптек.
// Видимый список всегда вычисляется из него через FilterMarkets.
type MarketPanel struct {
	api      MarketAPI
	pageSize int
	logger   *logrus.Logger

	mu         sync.Mutex
	records    []models.Market
	active     *bool
	loaded     bool
	generation uint64
	inflight   *panelLoad
}

// panelLoad загрузка списка в процессе. Ее результат разделяют все ожидающие.
type panelLoad struct {
	active     *bool
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	err        error
}

// NewMarketPanel создает пустую панель
func NewMarketPanel(api MarketAPI, pageSize int, logger *logrus.Logger) *MarketPanel {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &MarketPanel{api: api, pageSize: pageSize, logger: logger}
}

// EnsureLoaded загружает список, только если он еще не загружен
// или изменился серверный фильтр активности. Если такая же загрузка уже идет,
// вызов дожидается ее и возвращает ее результат без повторного запроса.
func (p *MarketPanel) EnsureLoaded(ctx context.Context, token string, active *bool) error {
	p.mu.Lock()
	if load := p.inflight; load != nil {
		if sameTriState(load.active, active) {
			p.mu.Unlock()
			return load.wait(ctx)
		}
	} else if p.loaded && sameTriState(p.active, active) {
		p.mu.Unlock()
		return nil
	}

	load := p.startLocked(ctx, token, active)
	p.mu.Unlock()
	return load.wait(ctx)
}

// Ready гарантирует, что набор загружен: при идущей загрузке дожидается ее,
// иначе загружает список без фильтра активности
func (p *MarketPanel) Ready(ctx context.Context, token string) error {
	p.mu.Lock()
	if p.loaded {
		p.mu.Unlock()
		return nil
	}
	load := p.inflight
	if load == nil {
		load = p.startLocked(ctx, token, nil)
	}
	p.mu.Unlock()
	return load.wait(ctx)
}

// Load загружает полный список аптек. Новая загрузка отменяет текущую:
// результат устаревшей загрузки отбрасывается, и она возвращает ErrLoadSuperseded.
func (p *MarketPanel) Load(ctx context.Context, token string, active *bool) error {
	p.mu.Lock()
	load := p.startLocked(ctx, token, active)
	p.mu.Unlock()
	return load.wait(ctx)
}

// startLocked запускает новую загрузку, отменяя текущую. Вызывается под p.mu.
// Загрузка не зависит от отмены контекста вызвавшего: ее могут ждать другие запросы.
func (p *MarketPanel) startLocked(ctx context.Context, token string, active *bool) *panelLoad {
	if p.inflight != nil {
		p.inflight.cancel()
	}
	p.generation++

	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	load := &panelLoad{
		active:     copyTriState(active),
		generation: p.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	p.inflight = load

	go p.run(loadCtx, token, load)
	return load
}

func (p *MarketPanel) run(ctx context.Context, token string, load *panelLoad) {
	defer load.cancel()
	records, err := p.fetchAll(ctx, token, load.active)

	p.mu.Lock()
	switch {
	case load.generation != p.generation:
		p.logger.WithField("generation", load.generation).Debug("Результат устаревшей загрузки отброшен")
		load.err = ErrLoadSuperseded
	case err != nil:
		load.err = err
	default:
		p.records = records
		p.active = load.active
		p.loaded = true
	}
	if p.inflight == load {
		p.inflight = nil
	}
	p.mu.Unlock()

	close(load.done)
}

// wait ждет завершения загрузки или отмены контекста вызвавшего
func (l *panelLoad) wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchAll собирает все страницы списка
func (p *MarketPanel) fetchAll(ctx context.Context, token string, active *bool) ([]models.Market, error) {
	records := []models.Market{}
	for page := 0; page < maxListPages; page++ {
		result, err := p.api.ListMarkets(ctx, token, ListMarketsRequest{
			SearchKey: "",
			Page:      page,
			Size:      p.pageSize,
			Active:    active,
		})
		if err != nil {
			return nil, err
		}

		records = append(records, result.List...)
		if len(result.List) < p.pageSize || (result.Total > 0 && int64(len(records)) >= result.Total) {
			break
		}
	}
	return records, nil
}

// Visible возвращает видимый список для условий отбора
func (p *MarketPanel) Visible(filter models.MarketFilter) []models.Market {
	return FilterMarkets(p.Snapshot(), filter)
}

// Snapshot возвращает текущий полный набор. Срез не изменяется панелью после выдачи.
func (p *MarketPanel) Snapshot() []models.Market {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records
}

// Get возвращает аптеку по ID
func (p *MarketPanel) Get(id int64) (models.Market, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range p.records {
		if m.ID == id {
			return m, true
		}
	}
	return models.Market{}, false
}

// Apply применяет подтвержденное сервером изменение поля к полному набору
func (p *MarketPanel) Apply(id int64, field models.EditableField, value bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	records, found := ReconcileMarket(p.records, id, field, value)
	if found {
		p.records = records
	}
	return found
}

// Close отменяет текущую загрузку; ее результат не будет применен
func (p *MarketPanel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight != nil {
		p.inflight.cancel()
		p.generation++
	}
}

// Find ищет аптеку в наборе панели. Если набор загружен с фильтром активности,
// аптека ищется в полном списке Davo API; набор панели при этом не меняется.
func (p *MarketPanel) Find(ctx context.Context, token string, id int64) (models.Market, bool, error) {
	if market, ok := p.Get(id); ok {
		return market, true, nil
	}

	p.mu.Lock()
	filtered := p.active != nil
	p.mu.Unlock()
	if !filtered {
		return models.Market{}, false, nil
	}

	records, err := p.fetchAll(ctx, token, nil)
	if err != nil {
		return models.Market{}, false, err
	}
	for _, m := range records {
		if m.ID == id {
			return m, true, nil
		}
	}
	return models.Market{}, false, nil
}

// Loaded загружен ли список
func (p *MarketPanel) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func sameTriState(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyTriState(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// busy идет ли загрузка
func (p *MarketPanel) busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight != nil
}

// PanelRegistry панели по ID сессии
type PanelRegistry struct {
	api      MarketAPI
	pageSize int
	logger   *logrus.Logger
	now      func() time.Time

	mu     sync.Mutex
	panels map[string]*panelEntry
}

type panelEntry struct {
	panel      *MarketPanel
	lastAccess time.Time
}

// NewPanelRegistry создает реестр панелей
func NewPanelRegistry(api MarketAPI, pageSize int, logger *logrus.Logger) *PanelRegistry {
	return &PanelRegistry{
		api:      api,
		pageSize: pageSize,
		logger:   logger,
		now:      time.Now,
		panels:   make(map[string]*panelEntry),
	}
}

// Get возвращает панель сессии, создавая ее при первом обращении
func (r *PanelRegistry) Get(sessionID string) *MarketPanel {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.panels[sessionID]
	if !ok {
		entry = &panelEntry{panel: NewMarketPanel(r.api, r.pageSize, r.logger)}
		r.panels[sessionID] = entry
	}
	entry.lastAccess = r.now()
	return entry.panel
}

// Drop удаляет панель сессии
func (r *PanelRegistry) Drop(sessionID string) {
	r.mu.Lock()
	entry, ok := r.panels[sessionID]
	delete(r.panels, sessionID)
	r.mu.Unlock()

	if ok {
		entry.panel.Close()
	}
}

// EvictIdle удаляет панели, к которым не обращались дольше maxIdle.
// Панели с идущей загрузкой не трогаются. Возвращает число удаленных.
func (r *PanelRegistry) EvictIdle(maxIdle time.Duration) int {
	deadline := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []*MarketPanel
	for id, entry := range r.panels {
		if entry.lastAccess.Before(deadline) && !entry.panel.busy() {
			evicted = append(evicted, entry.panel)
			delete(r.panels, id)
		}
	}
	r.mu.Unlock()

	for _, panel := range evicted {
		panel.Close()
	}
	return len(evicted)
}

// Len количество панелей
func (r *PanelRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.panels)
}
