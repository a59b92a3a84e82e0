package handler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/qa-forum-api/internal/model"
	"github.com/iliyamo/qa-forum-api/internal/queue"
	"github.com/iliyamo/qa-forum-api/internal/repository"
	"github.com/iliyamo/qa-forum-api/internal/utils"
)

// memDB mirrors the relational behaviour the handlers depend on: generated
// ids, vote aggregation on read and cascading deletes.
type memDB struct {
	mu          sync.Mutex
	nextID      uint64
	questions   map[uint64]model.Question
	answers     map[uint64]model.Answer
	questionVts map[uint64][]int
	answerVts   map[uint64][]int
}

func newMemDB() *memDB {
	return &memDB{
		questions:   map[uint64]model.Question{},
		answers:     map[uint64]model.Answer{},
		questionVts: map[uint64][]int{},
		answerVts:   map[uint64][]int{},
	}
}

func tally(vs []int) (up, down int64) {
	for _, v := range vs {
		if v > 0 {
			up++
		} else {
			down++
		}
	}
	return
}

func (m *memDB) question(id uint64) (*model.Question, bool) {
	q, ok := m.questions[id]
	if !ok {
		return nil, false
	}
	q.Upvotes, q.Downvotes = tally(m.questionVts[id])
	return &q, true
}

func (m *memDB) answer(id uint64) (*model.Answer, bool) {
	a, ok := m.answers[id]
	if !ok {
		return nil, false
	}
	a.Upvotes, a.Downvotes = tally(m.answerVts[id])
	return &a, true
}

type memQuestions struct{ *memDB }

func (m memQuestions) List(_ context.Context, f model.QuestionFilter) ([]*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Question
	for id := range m.questions {
		q, _ := m.question(id)
		if f.Title != "" && !strings.Contains(strings.ToLower(q.Title), strings.ToLower(f.Title)) {
			continue
		}
		if f.Category != "" && !strings.Contains(strings.ToLower(q.Category), strings.ToLower(f.Category)) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memQuestions) GetByID(_ context.Context, id uint64) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.question(id); ok {
		return q, nil
	}
	return nil, repository.ErrQuestionNotFound
}

func (m memQuestions) Create(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	q.CreatedAt = time.Now().UTC()
	q.UpdatedAt = q.CreatedAt
	m.questions[q.ID] = *q
	return nil
}

func (m memQuestions) Update(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.questions[q.ID]
	if !ok {
		return repository.ErrQuestionNotFound
	}
	q.CreatedAt = old.CreatedAt
	q.UpdatedAt = time.Now().UTC()
	m.questions[q.ID] = *q
	fresh, _ := m.question(q.ID)
	*q = *fresh
	return nil
}

func (m memQuestions) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return repository.ErrQuestionNotFound
	}
	delete(m.questions, id)
	delete(m.questionVts, id)
	for aid, a := range m.answers {
		if a.QuestionID == id {
			delete(m.answers, aid)
			delete(m.answerVts, aid)
		}
	}
	return nil
}

type memAnswers struct{ *memDB }

func (m memAnswers) ListByQuestion(_ context.Context, questionID uint64) ([]*model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[questionID]; !ok {
		return nil, repository.ErrQuestionNotFound
	}
	var out []*model.Answer
	for id, a := range m.answers {
		if a.QuestionID == questionID {
			fresh, _ := m.answer(id)
			out = append(out, fresh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memAnswers) GetByID(_ context.Context, id uint64) (*model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.answer(id); ok {
		return a, nil
	}
	return nil, repository.ErrAnswerNotFound
}

func (m memAnswers) Create(_ context.Context, a *model.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[a.QuestionID]; !ok {
		return repository.ErrQuestionNotFound
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.answers[a.ID] = *a
	return nil
}

func (m memAnswers) Update(_ context.Context, a *model.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.answers[a.ID]
	if !ok {
		return repository.ErrAnswerNotFound
	}
	old.Content = a.Content
	old.UpdatedAt = time.Now().UTC()
	m.answers[a.ID] = old
	fresh, _ := m.answer(a.ID)
	*a = *fresh
	return nil
}

func (m memAnswers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.answers[id]; !ok {
		return repository.ErrAnswerNotFound
	}
	delete(m.answers, id)
	delete(m.answerVts, id)
	return nil
}

type memVotes struct{ *memDB }

func (m memVotes) VoteQuestion(_ context.Context, id uint64, value int) (*model.Question, error) {
	if !model.ValidVote(value) {
		return nil, repository.ErrInvalidVote
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return nil, repository.ErrQuestionNotFound
	}
	m.questionVts[id] = append(m.questionVts[id], value)
	q, _ := m.question(id)
	return q, nil
}

func (m memVotes) VoteAnswer(_ context.Context, id uint64, value int) (*model.Answer, error) {
	if !model.ValidVote(value) {
		return nil, repository.ErrInvalidVote
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.answers[id]; !ok {
		return nil, repository.ErrAnswerNotFound
	}
	m.answerVts[id] = append(m.answerVts[id], value)
	a, _ := m.answer(id)
	return a, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (r *recordedEvents) Publish(_ context.Context, ev queue.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordedEvents) Close() error { return nil }

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type memUsers struct {
	mu    sync.Mutex
	users []model.User
}

func (m *memUsers) Create(_ context.Context, u *model.User, password string, cost int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Username == u.Username {
			return repository.ErrUsernameTaken
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.ID = uint64(len(m.users) + 1)
	u.PasswordHash = hash
	m.users = append(m.users, *u)
	return nil
}

func (m *memUsers) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if match(x) {
			u := x
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == username })
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

type memTokens struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]model.RefreshToken{}} }

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[hash] = model.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (m *memTokens) FindRefresh(_ context.Context, hash string) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.rows[hash]; ok {
		return &t, nil
	}
	return nil, repository.ErrTokenNotFound
}

func (m *memTokens) DeleteRefresh(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[hash]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(m.rows, hash)
	return nil
}

func (m *memTokens) RotateRefresh(_ context.Context, oldHash string, userID uint64, newHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[oldHash]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(m.rows, oldHash)
	m.rows[newHash] = model.RefreshToken{UserID: userID, TokenHash: newHash, ExpiresAt: exp}
	return nil
}

func (m *memTokens) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }
