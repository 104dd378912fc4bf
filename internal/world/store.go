// Package world хранит восстановленное состояние объектов мира:
// создание, слияние повторных созданий, применение блоков Values,
// журнал изменений отслеживаемых полей и пассажиров транспорта.
package world

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/annel0/sniff-parser/internal/catalog"
	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/annel0/sniff-parser/internal/movement"
	"github.com/annel0/sniff-parser/internal/revision"
	"github.com/annel0/sniff-parser/internal/updatefield"
)

// Options управляет тем, какие изменения попадают в журнал
type Options struct {
	SaveHealthUpdates    bool
	SaveManaUpdates      bool
	CreatureTargetChange bool
}

// watchSlots - номера слотов списка наблюдения, -1 если поля нет в каталоге
type watchSlots struct {
	entry, scale, display, mount, faction, emote, bytes1    int
	npcFlags, unitFlags, health, maxHealth, power, maxPower int
	target                                                  int
	goFlags, goBytes1, goAnim                               int
}

func resolveWatch(cat *catalog.Catalog) watchSlots {
	return watchSlots{
		entry:     cat.Slot("OBJECT_FIELD_ENTRY"),
		scale:     cat.Slot("OBJECT_FIELD_SCALE_X"),
		display:   cat.Slot("UNIT_FIELD_DISPLAYID"),
		mount:     cat.Slot("UNIT_FIELD_MOUNTDISPLAYID"),
		faction:   cat.Slot("UNIT_FIELD_FACTIONTEMPLATE"),
		emote:     cat.Slot("UNIT_NPC_EMOTESTATE"),
		bytes1:    cat.Slot("UNIT_FIELD_BYTES_1"),
		npcFlags:  cat.Slot("UNIT_NPC_FLAGS"),
		unitFlags: cat.Slot("UNIT_FIELD_FLAGS"),
		health:    cat.Slot("UNIT_FIELD_HEALTH"),
		maxHealth: cat.Slot("UNIT_FIELD_MAXHEALTH"),
		power:     cat.Slot("UNIT_FIELD_POWER1"),
		maxPower:  cat.Slot("UNIT_FIELD_MAXPOWER1"),
		target:    cat.Slot("UNIT_FIELD_TARGET"),
		goFlags:   cat.Slot("GAMEOBJECT_FLAGS"),
		goBytes1:  cat.Slot("GAMEOBJECT_BYTES_1"),
		goAnim:    cat.Slot("GAMEOBJECT_ANIMPROGRESS"),
	}
}

// lookup возвращает значение слота из обновления
func lookup(fields updatefield.Slots, slot int) (uint32, bool) {
	if slot < 0 {
		return 0, false
	}
	v, ok := fields[slot]
	return v, ok
}

// Stats - сводка по содержимому хранилища
type Stats struct {
	Entities    int            `json:"entities"`
	Destroyed   int            `json:"destroyed"`
	ByKind      map[string]int `json:"by_kind"`
	Changes     int            `json:"changes"`
	Accessories int            `json:"accessories"`
	Untracked   int            `json:"untracked"`
}

// Store - хранилище объектов мира.
// Пишет в него один поток разбора; читать можно конкурентно.
type Store struct {
	cat   *catalog.Catalog
	build revision.Build
	opts  Options
	watch watchSlots

	mu            sync.RWMutex
	entities      map[guid.GUID]*Entity
	order         []guid.GUID
	creatures     map[guid.GUID][]CreatureUpdate
	objects       map[guid.GUID][]GameObjectUpdate
	targets       map[guid.GUID][]TargetChange
	accessories   []movement.Accessory
	accessorySeen map[movement.Accessory]struct{}
	untracked     map[guid.GUID]int
	activePlayer  guid.GUID
	listeners     []Listener
}

// NewStore создаёт пустое хранилище для каталога и версии протокола
func NewStore(cat *catalog.Catalog, build revision.Build, opts Options) *Store {
	return &Store{
		cat:           cat,
		build:         build,
		opts:          opts,
		watch:         resolveWatch(cat),
		entities:      make(map[guid.GUID]*Entity),
		creatures:     make(map[guid.GUID][]CreatureUpdate),
		objects:       make(map[guid.GUID][]GameObjectUpdate),
		targets:       make(map[guid.GUID][]TargetChange),
		accessorySeen: make(map[movement.Accessory]struct{}),
		untracked:     make(map[guid.GUID]int),
	}
}

// Catalog возвращает каталог полей хранилища
func (s *Store) Catalog() *catalog.Catalog {
	return s.cat
}

// Build возвращает версию протокола хранилища
func (s *Store) Build() revision.Build {
	return s.build
}

// AddListener подписывает слушателя на события
func (s *Store) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// emit доставляет события вне блокировки
func (s *Store) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, ev := range events {
		for _, l := range listeners {
			l.HandleEvent(ev)
		}
	}
}

// snapshot копирует объект для события, если есть кому его отдать.
// Вызывается под блокировкой.
func (s *Store) snapshot(e *Entity) *Entity {
	if len(s.listeners) == 0 {
		return nil
	}
	return e.Clone()
}

// Lookup возвращает тип и текущие таблицы полей объекта.
// Таблицы принадлежат хранилищу и не должны изменяться вызывающим.
func (s *Store) Lookup(g guid.GUID) (catalog.Kind, updatefield.Slots, updatefield.DynamicSlots, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[g]
	if !ok {
		return catalog.Object, nil, nil, false
	}
	return e.Kind, e.Fields, e.Dynamic, true
}

// CreateOrMerge обрабатывает блок создания. Новый объект сохраняется
// целиком, повторное создание объединяет маску фаз и применяет поля
// как обычное обновление. Возвращает true для нового объекта.
func (s *Store) CreateOrMerge(ctx Context, g guid.GUID, kind catalog.Kind, mov movement.Info,
	fields updatefield.Slots, dynamic updatefield.DynamicSlots) bool {
	s.mu.Lock()
	var events []Event
	e, exists := s.entities[g]
	if exists {
		e.PhaseMask |= ctx.PhaseMask
		if g.HighType() == guid.Creature && !e.Movement.HasWpsOrRandMov &&
			!e.Movement.Position.Equal(mov.Position) &&
			!NewUnitData(s.cat, s.build, e.Fields).InCombat() {
			e.Movement.HasWpsOrRandMov = true
		}
		if fields != nil {
			events = s.apply(e, ctx.Time, fields, dynamic)
		}
		events = append(events, Event{Type: EventEntityMerged, GUID: g, Time: ctx.Time, Entity: s.snapshot(e)})
	} else {
		if fields == nil {
			fields = make(updatefield.Slots)
		}
		if dynamic == nil {
			dynamic = make(updatefield.DynamicSlots)
		}
		e = &Entity{
			GUID:       g,
			Kind:       kind,
			Movement:   mov,
			Fields:     fields,
			Dynamic:    dynamic,
			MapID:      ctx.MapID,
			ZoneID:     ctx.ZoneID,
			AreaID:     ctx.AreaID,
			PhaseMask:  ctx.PhaseMask,
			CreateTime: ctx.Time,
		}
		s.entities[g] = e
		s.order = append(s.order, g)
		events = append(events, Event{Type: EventEntityCreated, GUID: g, Time: ctx.Time, Entity: s.snapshot(e)})
	}
	s.mu.Unlock()

	s.emit(events)
	return !exists
}

// ApplyUpdate применяет блок Values к известному объекту.
// Для неизвестного GUID только увеличивает счётчик и возвращает false.
func (s *Store) ApplyUpdate(g guid.GUID, at time.Time, fields updatefield.Slots, dynamic updatefield.DynamicSlots) bool {
	s.mu.Lock()
	e, ok := s.entities[g]
	if !ok {
		s.untracked[g]++
		s.mu.Unlock()
		return false
	}
	events := s.apply(e, at, fields, dynamic)
	s.mu.Unlock()

	s.emit(events)
	return true
}

// apply сравнивает обновление с прежними значениями и затем сливает поля.
// Вызывается под блокировкой.
func (s *Store) apply(e *Entity, at time.Time, fields updatefield.Slots, dynamic updatefield.DynamicSlots) []Event {
	var events []Event

	switch {
	case e.IsCreature():
		if s.opts.CreatureTargetChange {
			if tc := s.diffTarget(e, at, fields); tc != nil {
				s.targets[e.GUID] = append(s.targets[e.GUID], *tc)
				events = append(events, Event{Type: EventTargetChanged, GUID: e.GUID, Time: at, Target: tc})
			}
		}
		if u := s.diffCreature(e, at, fields); u != nil {
			s.creatures[e.GUID] = append(s.creatures[e.GUID], *u)
			events = append(events, Event{Type: EventCreatureChanged, GUID: e.GUID, Time: at, Creature: u})
		}
	case e.Kind == catalog.GameObject:
		if u := s.diffGameObject(e, at, fields); u != nil {
			s.objects[e.GUID] = append(s.objects[e.GUID], *u)
			events = append(events, Event{Type: EventGameObjectChanged, GUID: e.GUID, Time: at, Object: u})
		}
	}

	for slot, v := range fields {
		e.Fields[slot] = v
	}
	for slot, v := range dynamic {
		e.Dynamic[slot] = append([]uint32(nil), v...)
	}

	return append(events, Event{Type: EventEntityUpdated, GUID: e.GUID, Time: at, Entity: s.snapshot(e)})
}

func (s *Store) diffCreature(e *Entity, at time.Time, fields updatefield.Slots) *CreatureUpdate {
	w := s.watch
	changed := func(slot int) *uint32 {
		v, ok := lookup(fields, slot)
		if !ok || v == e.Fields[slot] {
			return nil
		}
		return ptr(v)
	}

	u := &CreatureUpdate{
		Time:            at,
		Entry:           changed(w.entry),
		DisplayID:       changed(w.display),
		MountDisplayID:  changed(w.mount),
		FactionTemplate: changed(w.faction),
		EmoteState:      changed(w.emote),
		NpcFlags:        changed(w.npcFlags),
		UnitFlags:       changed(w.unitFlags),
	}
	if v := changed(w.scale); v != nil {
		u.Scale = ptr(math.Float32frombits(*v))
	}
	if v, ok := lookup(fields, w.bytes1); ok && v&0xFF != e.Fields[w.bytes1]&0xFF {
		u.StandState = ptr(v & 0xFF)
	}
	if s.opts.SaveHealthUpdates {
		u.CurHealth = changed(w.health)
		u.MaxHealth = changed(w.maxHealth)
	}
	if s.opts.SaveManaUpdates {
		u.CurMana = changed(w.power)
		u.MaxMana = changed(w.maxPower)
	}

	if u.Empty() {
		return nil
	}
	return u
}

// diffTarget собирает новую цель из обновления, недостающие слова берутся из прежних полей
func (s *Store) diffTarget(e *Entity, at time.Time, fields updatefield.Slots) *TargetChange {
	start := s.watch.target
	if start < 0 {
		return nil
	}

	width := s.build.GUIDFieldSlots()
	merged := make(updatefield.Slots, width)
	present := false
	for k := 0; k < width; k++ {
		if v, ok := fields[start+k]; ok {
			merged[start+k] = v
			present = true
		} else {
			merged[start+k] = e.Fields[start+k]
		}
	}
	if !present {
		return nil
	}

	next := updatefield.GUIDAt(merged, start, s.build)
	if next == updatefield.GUIDAt(e.Fields, start, s.build) {
		return nil
	}
	return &TargetChange{Time: at, Target: next}
}

func (s *Store) diffGameObject(e *Entity, at time.Time, fields updatefield.Slots) *GameObjectUpdate {
	w := s.watch
	u := &GameObjectUpdate{Time: at}

	if v, ok := lookup(fields, w.goFlags); ok {
		u.Flags = ptr(v)
	}
	if v, ok := lookup(fields, w.goBytes1); ok {
		prev := e.Fields[w.goBytes1]
		if anim := (v & 0xFF000000) >> 24; anim != (prev&0xFF000000)>>24 {
			u.AnimProgress = ptr(anim)
		}
		if state := v & 0xFF; state != prev&0xFF {
			u.State = ptr(state)
		}
	}
	if v, ok := lookup(fields, w.goAnim); ok {
		u.AnimProgress = ptr(v)
	}

	if u.Empty() {
		return nil
	}
	return u
}

// UpdateMovement заменяет движение объекта целиком по блоку Movement.
// Признак маршрута, однажды выставленный, сохраняется.
func (s *Store) UpdateMovement(g guid.GUID, at time.Time, mov movement.Info) bool {
	s.mu.Lock()
	e, ok := s.entities[g]
	if !ok {
		s.untracked[g]++
		s.mu.Unlock()
		return false
	}
	mov.HasWpsOrRandMov = mov.HasWpsOrRandMov || e.Movement.HasWpsOrRandMov
	e.Movement = mov
	ev := Event{Type: EventEntityMoved, GUID: g, Time: at, Entity: s.snapshot(e)}
	s.mu.Unlock()

	s.emit([]Event{ev})
	return true
}

// Destroy отмечает объект уничтоженным, не удаляя его.
// Для неизвестного GUID только увеличивает счётчик и возвращает false.
func (s *Store) Destroy(g guid.GUID, at time.Time) bool {
	s.mu.Lock()
	e, ok := s.entities[g]
	if !ok {
		s.untracked[g]++
		s.mu.Unlock()
		return false
	}
	e.Destroyed = true
	e.DestroyTime = at
	ev := Event{Type: EventEntityDestroyed, GUID: g, Time: at, Entity: s.snapshot(e)}
	s.mu.Unlock()

	s.emit([]Event{ev})
	return true
}

// AddVehicleAccessory запоминает пассажира транспорта. Повторы игнорируются.
func (s *Store) AddVehicleAccessory(a movement.Accessory) {
	s.mu.Lock()
	if _, seen := s.accessorySeen[a]; seen {
		s.mu.Unlock()
		return
	}
	s.accessorySeen[a] = struct{}{}
	s.accessories = append(s.accessories, a)
	s.mu.Unlock()

	s.emit([]Event{{Type: EventVehicleAccessory, Accessory: &a}})
}

// MarkActivePlayer отмечает объект как персонажа, записавшего захват
func (s *Store) MarkActivePlayer(g guid.GUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePlayer = g
	if e, ok := s.entities[g]; ok {
		e.ActivePlayer = true
	}
}

// ActivePlayer возвращает GUID персонажа, записавшего захват
func (s *Store) ActivePlayer() (guid.GUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activePlayer, !s.activePlayer.IsEmpty()
}

// Restore кладёт объект из сохранённого снимка без генерации событий
func (s *Store) Restore(e *Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := e.Clone()
	if _, ok := s.entities[c.GUID]; !ok {
		s.order = append(s.order, c.GUID)
	}
	s.entities[c.GUID] = c
}

// Get возвращает копию объекта
func (s *Store) Get(g guid.GUID) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[g]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// All возвращает копии всех объектов в порядке создания
func (s *Store) All() []*Entity {
	return s.filter(func(*Entity) bool { return true })
}

// ByKind возвращает копии объектов указанного типа
func (s *Store) ByKind(kind catalog.Kind) []*Entity {
	return s.filter(func(e *Entity) bool { return e.Kind == kind })
}

func (s *Store) filter(keep func(*Entity) bool) []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entity, 0, len(s.order))
	for _, g := range s.order {
		if e := s.entities[g]; keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Len возвращает число известных объектов
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Changes возвращает журнал изменений отслеживаемых полей юнита
func (s *Store) Changes(g guid.GUID) []CreatureUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CreatureUpdate(nil), s.creatures[g]...)
}

// GameObjectChanges возвращает журнал изменений игрового объекта
func (s *Store) GameObjectChanges(g guid.GUID) []GameObjectUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]GameObjectUpdate(nil), s.objects[g]...)
}

// TargetChanges возвращает смены цели юнита
func (s *Store) TargetChanges(g guid.GUID) []TargetChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TargetChange(nil), s.targets[g]...)
}

// Accessories возвращает найденных пассажиров в порядке обнаружения
func (s *Store) Accessories() []movement.Accessory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]movement.Accessory(nil), s.accessories...)
}

// Untracked возвращает GUID, упомянутые без предшествующего создания
func (s *Store) Untracked() []guid.GUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]guid.GUID, 0, len(s.untracked))
	for g := range s.untracked {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].High != out[j].High {
			return out[i].High < out[j].High
		}
		return out[i].Low < out[j].Low
	})
	return out
}

// Stats собирает сводку по хранилищу
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Entities:    len(s.entities),
		ByKind:      make(map[string]int),
		Accessories: len(s.accessories),
		Untracked:   len(s.untracked),
	}
	for _, e := range s.entities {
		st.ByKind[e.Kind.String()]++
		if e.Destroyed {
			st.Destroyed++
		}
	}
	for _, log := range s.creatures {
		st.Changes += len(log)
	}
	for _, log := range s.objects {
		st.Changes += len(log)
	}
	return st
}
