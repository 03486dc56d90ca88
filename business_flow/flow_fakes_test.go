package businessflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kairan-app/kairan/models"
	"github.com/kairan-app/kairan/utils"
)

// In-memory repository fakes. They model only the behavior the flows rely
// on, including the reaction dedupe uniqueness constraint.

type fakeMemberRepo struct {
	members []*models.Member
	nextID  uint
	failAll bool
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{}
}

func (r *fakeMemberRepo) addMember(phone, name string, isAdmin bool) *models.Member {
	r.nextID++
	m := &models.Member{
		ID:       r.nextID,
		Phone:    utils.NormalizePhone(phone),
		Name:     name,
		IsAdmin:  isAdmin,
		IsActive: utils.ToPtr(true),
	}
	r.members = append(r.members, m)
	return m
}

func (r *fakeMemberRepo) ByID(ctx context.Context, id uint) (*models.Member, error) {
	for _, m := range r.members {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMemberRepo) ByFilter(ctx context.Context, filter models.MemberFilter, orderBy string, limit, offset int) ([]*models.Member, error) {
	var out []*models.Member
	for _, m := range r.members {
		if filter.IsActive != nil && utils.IsTrue(m.IsActive) != *filter.IsActive {
			continue
		}
		if filter.Phone != nil && m.Phone != *filter.Phone {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMemberRepo) Save(ctx context.Context, m *models.Member) error {
	if r.failAll {
		return fmt.Errorf("fake member repo failure")
	}
	if m.ID == 0 {
		r.nextID++
		m.ID = r.nextID
	}
	r.members = append(r.members, m)
	return nil
}

func (r *fakeMemberRepo) SaveBatch(ctx context.Context, ms []*models.Member) error {
	for _, m := range ms {
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMemberRepo) Count(ctx context.Context, filter models.MemberFilter) (int64, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(out)), nil
}

func (r *fakeMemberRepo) Exists(ctx context.Context, filter models.MemberFilter) (bool, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return len(out) > 0, nil
}

func (r *fakeMemberRepo) ByPhone(ctx context.Context, phone string) (*models.Member, error) {
	if r.failAll {
		return nil, fmt.Errorf("fake member repo failure")
	}
	for i := len(r.members) - 1; i >= 0; i-- {
		if r.members[i].Phone == phone {
			return r.members[i], nil
		}
	}
	return nil, nil
}

func (r *fakeMemberRepo) ListActive(ctx context.Context) ([]*models.Member, error) {
	if r.failAll {
		return nil, fmt.Errorf("fake member repo failure")
	}
	var out []*models.Member
	for _, m := range r.members {
		if utils.IsTrue(m.IsActive) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) RecordActivity(ctx context.Context, memberID uint, at time.Time) error {
	for _, m := range r.members {
		if m.ID == memberID {
			m.LastActiveAt = &at
			m.MessageCount++
		}
	}
	return nil
}

func (r *fakeMemberRepo) Update(ctx context.Context, member *models.Member) error {
	for i, m := range r.members {
		if m.ID == member.ID {
			r.members[i] = member
			return nil
		}
	}
	return fmt.Errorf("member %d not found", member.ID)
}

func (r *fakeMemberRepo) Delete(ctx context.Context, memberID uint) error {
	for i, m := range r.members {
		if m.ID == memberID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeMessageRepo struct {
	messages []*models.BroadcastMessage
	nextID   uint
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) addBroadcast(senderID uint, senderName, text string, createdAt time.Time) *models.BroadcastMessage {
	r.nextID++
	m := &models.BroadcastMessage{
		ID:               r.nextID,
		SenderID:         &senderID,
		SenderName:       senderName,
		OriginalText:     text,
		RenderedText:     fmt.Sprintf("%s: %s", senderName, text),
		ProcessingStatus: models.ProcessingStatusCompleted,
		DeliveryStatus:   models.DeliveryStatusCompleted,
		CreatedAt:        createdAt,
	}
	r.messages = append(r.messages, m)
	return m
}

func (r *fakeMessageRepo) ByID(ctx context.Context, id uint) (*models.BroadcastMessage, error) {
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) ByFilter(ctx context.Context, filter models.BroadcastMessageFilter, orderBy string, limit, offset int) ([]*models.BroadcastMessage, error) {
	var out []*models.BroadcastMessage
	for _, m := range r.messages {
		if filter.CreatedAfter != nil && m.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && m.CreatedAt.After(*filter.CreatedBefore) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) Save(ctx context.Context, m *models.BroadcastMessage) error {
	if m.ID == 0 {
		r.nextID++
		m.ID = r.nextID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) SaveBatch(ctx context.Context, ms []*models.BroadcastMessage) error {
	for _, m := range ms {
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, filter models.BroadcastMessageFilter) (int64, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(out)), nil
}

func (r *fakeMessageRepo) Exists(ctx context.Context, filter models.BroadcastMessageFilter) (bool, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return len(out) > 0, nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, message *models.BroadcastMessage) error {
	for i, m := range r.messages {
		if m.ID == message.ID {
			r.messages[i] = message
			return nil
		}
	}
	return fmt.Errorf("message %d not found", message.ID)
}

func (r *fakeMessageRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]*models.BroadcastMessage, error) {
	return r.ByFilter(ctx, models.BroadcastMessageFilter{CreatedAfter: &since}, "created_at DESC", limit, 0)
}

func (r *fakeMessageRepo) Latest(ctx context.Context) (*models.BroadcastMessage, error) {
	if len(r.messages) == 0 {
		return nil, nil
	}
	latest := r.messages[0]
	for _, m := range r.messages[1:] {
		if m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	return latest, nil
}

type fakeDeliveryLogRepo struct {
	logs    []*models.DeliveryLog
	nextID  uint
	failAll bool
}

func newFakeDeliveryLogRepo() *fakeDeliveryLogRepo {
	return &fakeDeliveryLogRepo{}
}

func (r *fakeDeliveryLogRepo) ByID(ctx context.Context, id uint) (*models.DeliveryLog, error) {
	for _, l := range r.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeDeliveryLogRepo) ByFilter(ctx context.Context, filter models.DeliveryLogFilter, orderBy string, limit, offset int) ([]*models.DeliveryLog, error) {
	var out []*models.DeliveryLog
	for _, l := range r.logs {
		if filter.MessageID != nil && l.MessageID != *filter.MessageID {
			continue
		}
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeDeliveryLogRepo) Save(ctx context.Context, l *models.DeliveryLog) error {
	if r.failAll {
		return fmt.Errorf("fake delivery log repo failure")
	}
	r.nextID++
	l.ID = r.nextID
	r.logs = append(r.logs, l)
	return nil
}

func (r *fakeDeliveryLogRepo) SaveBatch(ctx context.Context, ls []*models.DeliveryLog) error {
	for _, l := range ls {
		if err := r.Save(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeDeliveryLogRepo) Count(ctx context.Context, filter models.DeliveryLogFilter) (int64, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(out)), nil
}

func (r *fakeDeliveryLogRepo) Exists(ctx context.Context, filter models.DeliveryLogFilter) (bool, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return len(out) > 0, nil
}

func (r *fakeDeliveryLogRepo) ListByMessage(ctx context.Context, messageID uint) ([]*models.DeliveryLog, error) {
	return r.ByFilter(ctx, models.DeliveryLogFilter{MessageID: &messageID}, "id ASC", 0, 0)
}

type fakeReactionRepo struct {
	reactions []*models.MessageReaction
	nextID    uint
	failSave  bool
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{}
}

func (r *fakeReactionRepo) ByID(ctx context.Context, id uint) (*models.MessageReaction, error) {
	for _, x := range r.reactions {
		if x.ID == id {
			return x, nil
		}
	}
	return nil, nil
}

func (r *fakeReactionRepo) ByFilter(ctx context.Context, filter models.MessageReactionFilter, orderBy string, limit, offset int) ([]*models.MessageReaction, error) {
	var out []*models.MessageReaction
	for _, x := range r.reactions {
		if filter.Processed != nil && x.Processed != *filter.Processed {
			continue
		}
		if filter.MessageID != nil && x.MessageID != *filter.MessageID {
			continue
		}
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Save enforces the dedupe uniqueness constraint the real table carries
func (r *fakeReactionRepo) Save(ctx context.Context, x *models.MessageReaction) error {
	if r.failSave {
		return fmt.Errorf("fake reaction repo failure")
	}
	for _, existing := range r.reactions {
		if existing.MessageID == x.MessageID &&
			existing.ReactorPhone == x.ReactorPhone &&
			existing.ReactionType == x.ReactionType {
			return fmt.Errorf("duplicate key value violates unique constraint \"uk_message_reactions_dedupe\"")
		}
	}
	r.nextID++
	x.ID = r.nextID
	if x.CreatedAt.IsZero() {
		x.CreatedAt = utils.UTCNow()
	}
	r.reactions = append(r.reactions, x)
	return nil
}

func (r *fakeReactionRepo) SaveBatch(ctx context.Context, xs []*models.MessageReaction) error {
	for _, x := range xs {
		if err := r.Save(ctx, x); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeReactionRepo) Count(ctx context.Context, filter models.MessageReactionFilter) (int64, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(out)), nil
}

func (r *fakeReactionRepo) Exists(ctx context.Context, filter models.MessageReactionFilter) (bool, error) {
	out, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return len(out) > 0, nil
}

func (r *fakeReactionRepo) ByDedupeKey(ctx context.Context, messageID uint, reactorPhone string, reactionType models.ReactionType) (*models.MessageReaction, error) {
	for _, x := range r.reactions {
		if x.MessageID == messageID && x.ReactorPhone == reactorPhone && x.ReactionType == reactionType {
			return x, nil
		}
	}
	return nil, nil
}

func (r *fakeReactionRepo) ListUnprocessed(ctx context.Context) ([]*models.MessageReaction, error) {
	return r.ByFilter(ctx, models.MessageReactionFilter{Processed: utils.ToPtr(false)}, "created_at ASC", 0, 0)
}

func (r *fakeReactionRepo) CountUnprocessed(ctx context.Context) (int64, error) {
	return r.Count(ctx, models.MessageReactionFilter{Processed: utils.ToPtr(false)})
}

func (r *fakeReactionRepo) MarkProcessed(ctx context.Context, ids []uint) error {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, x := range r.reactions {
		if set[x.ID] {
			x.Processed = true
			x.IncludedInSummary = true
		}
	}
	return nil
}
