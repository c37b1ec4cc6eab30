package trivia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskQuest/pkg/breaker"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *Question
	}{
		{
			name: "decodes entities",
			body: `{"response_code":0,"results":[{"question":"Who wrote &quot;Hamlet&quot;?","correct_answer":"Shakespeare","incorrect_answers":["Marlowe","Jonson","O&#039;Neill"]}]}`,
			want: &Question{
				Text:      `Who wrote "Hamlet"?`,
				Correct:   "Shakespeare",
				Incorrect: []string{"Marlowe", "Jonson", "O'Neill"},
			},
		},
		{name: "non zero response code", body: `{"response_code":1,"results":[]}`},
		{name: "empty results", body: `{"response_code":0,"results":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parse([]byte("<html>"))
	assert.Error(t, err)
}

func TestQuestionChoices(t *testing.T) {
	q := Question{Correct: "4", Incorrect: []string{"1", "2", "3"}}
	assert.ElementsMatch(t, []string{"1", "2", "3", "4"}, q.Choices())
	assert.Len(t, q.Incorrect, 3)
}

func TestOpenTDBFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response_code":0,"results":[{"question":"2+2?","correct_answer":"4","incorrect_answers":["3","5","22"]}]}`)
	}))
	defer srv.Close()

	p, err := NewOpenTDB(srv.URL+"/api.php?amount=1&type=multiple", 2*time.Second)
	require.NoError(t, err)

	q, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "2+2?", q.Text)
	assert.Equal(t, "4", q.Correct)
}

type failingProvider struct{ calls int }

func (f *failingProvider) Fetch(context.Context) (*Question, error) {
	f.calls++
	return nil, errors.New("upstream down")
}

func TestWithBreaker(t *testing.T) {
	inner := &failingProvider{}
	p := WithBreaker(inner, breaker.New("trivia", 2, time.Hour))

	for i := 0; i < 2; i++ {
		_, err := p.Fetch(context.Background())
		assert.Error(t, err)
	}
	_, err := p.Fetch(context.Background())
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, 2, inner.calls)
}
