package memory

import (
	"context"
	"sort"

	"TaskQuest/internal/model"
	"TaskQuest/internal/repository"
)

type triviaRepo struct{ s *Store }

func (r *triviaRepo) GetStreak(ctx context.Context, accountID int64) (*model.TriviaStreak, error) {
	defer r.s.lock()()

	streak, ok := r.s.st().streaks[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &streak, nil
}

func (r *triviaRepo) GetStreakForUpdate(ctx context.Context, accountID int64) (*model.TriviaStreak, error) {
	return r.GetStreak(ctx, accountID)
}

func (r *triviaRepo) CreateStreak(ctx context.Context, streak *model.TriviaStreak) error {
	defer r.s.lock()()
	st := r.s.st()

	if _, ok := st.streaks[streak.AccountID]; ok {
		return repository.ErrDuplicate
	}
	streak.ID = st.nextID()
	streak.CreatedAt = r.s.now()
	streak.UpdatedAt = streak.CreatedAt
	st.streaks[streak.AccountID] = *streak
	return nil
}

func (r *triviaRepo) SaveStreak(ctx context.Context, streak *model.TriviaStreak) error {
	defer r.s.lock()()
	st := r.s.st()

	if _, ok := st.streaks[streak.AccountID]; !ok {
		return repository.ErrNotFound
	}
	st.streaks[streak.AccountID] = *streak
	return nil
}

func (r *triviaRepo) AppendHistory(ctx context.Context, entry *model.TriviaHistory) error {
	defer r.s.lock()()
	st := r.s.st()

	entry.ID = st.nextID()
	if entry.AnsweredAt.IsZero() {
		entry.AnsweredAt = r.s.now()
	}
	st.history = append(st.history, *entry)
	return nil
}

func (r *triviaRepo) ListHistory(ctx context.Context, accountID int64, limit int) ([]model.TriviaHistory, error) {
	defer r.s.lock()()

	var out []model.TriviaHistory
	for _, h := range r.s.st().history {
		if h.AccountID == accountID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnsweredAt.Equal(out[j].AnsweredAt) {
			return out[i].AnsweredAt.After(out[j].AnsweredAt)
		}
		return out[i].ID > out[j].ID
	})
	return limitSlice(out, limit), nil
}

func (r *triviaRepo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	defer r.s.lock()()
	st := r.s.st()

	var out []model.LeaderboardEntry
	for accountID, streak := range st.streaks {
		account, ok := st.accounts[accountID]
		if !ok {
			continue
		}
		out = append(out, model.LeaderboardEntry{Username: account.Username, MaxStreak: streak.MaxStreak})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MaxStreak != out[j].MaxStreak {
			return out[i].MaxStreak > out[j].MaxStreak
		}
		return out[i].Username < out[j].Username
	})
	return limitSlice(out, limit), nil
}

type blogRepo struct{ s *Store }

func (r *blogRepo) CreatePost(ctx context.Context, post *model.Post) error {
	defer r.s.lock()()
	st := r.s.st()

	post.ID = st.nextID()
	post.CreatedAt = r.s.now()
	post.UpdatedAt = post.CreatedAt
	stored := *post
	stored.Author = model.Account{}
	stored.Comments = nil
	st.posts[post.ID] = stored
	return nil
}

func (r *blogRepo) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	defer r.s.lock()()

	p, ok := r.s.st().posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Author = r.s.st().accounts[p.AccountID]
	return &p, nil
}

func (r *blogRepo) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	defer r.s.lock()()
	st := r.s.st()

	out := make([]model.Post, 0, len(st.posts))
	for _, p := range st.posts {
		p.Author = st.accounts[p.AccountID]
		for _, c := range st.comments {
			if c.PostID == p.ID {
				c.Author = st.accounts[c.AccountID]
				p.Comments = append(p.Comments, c)
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return limitSlice(out, limit), nil
}

func (r *blogRepo) CreateComment(ctx context.Context, comment *model.Comment) error {
	defer r.s.lock()()
	st := r.s.st()

	comment.ID = st.nextID()
	comment.CreatedAt = r.s.now()
	comment.UpdatedAt = comment.CreatedAt
	stored := *comment
	stored.Author = model.Account{}
	st.comments = append(st.comments, stored)
	return nil
}
