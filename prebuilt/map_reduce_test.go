package prebuilt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/log"
	"github.com/smallnest/graphpatterns/model"
)

const jokePrefix = "Generate a joke about "

// jokeHandler plans the given subjects, writes "joke about <subject>" and
// picks bestID.
func jokeHandler(subjects []string, bestID int) func(context.Context, string, string) (string, error) {
	return func(_ context.Context, function, prompt string) (string, error) {
		switch function {
		case "Subjects":
			quoted := make([]string, len(subjects))
			for i, s := range subjects {
				quoted[i] = fmt.Sprintf("%q", s)
			}
			return `{"subjects":[` + strings.Join(quoted, ",") + `]}`, nil
		case "Joke":
			subject := strings.TrimPrefix(prompt, jokePrefix)
			return fmt.Sprintf(`{"joke":"joke about %s"}`, subject), nil
		case "BestJoke":
			return fmt.Sprintf(`{"id":%d}`, bestID), nil
		}
		return "", fmt.Errorf("unexpected function %q", function)
	}
}

func newJokeGraph(t *testing.T, mock *StructuredMockLLM, opts ...MapReduceOption) *graph.StateRunnable[JokesState] {
	t.Helper()
	opts = append([]MapReduceOption{WithLogger(&log.NoOpLogger{})}, opts...)
	g, err := CreateJokeMapReduce(model.NewCaller(mock), opts...)
	require.NoError(t, err)
	return g
}

func TestJokeMapReduce(t *testing.T) {
	subjects := []string{"mammals", "reptiles", "birds"}
	var bestPrompt atomic.Value
	handler := jokeHandler(subjects, 1)
	mock := newStructuredMock(func(ctx context.Context, function, prompt string) (string, error) {
		if function == "BestJoke" {
			bestPrompt.Store(prompt)
		}
		return handler(ctx, function, prompt)
	})
	g := newJokeGraph(t, mock)

	final, err := g.Invoke(context.Background(), JokesState{Topic: "animals"})
	require.NoError(t, err)

	assert.Equal(t, "animals", final.Topic)
	assert.Equal(t, subjects, final.Subjects)
	assert.ElementsMatch(t, []string{
		"joke about mammals",
		"joke about reptiles",
		"joke about birds",
	}, final.Jokes)
	assert.Equal(t, final.Jokes[1], final.BestSelectedJoke)

	assert.Equal(t, 1, mock.count("Subjects"))
	assert.Equal(t, 3, mock.count("Joke"))
	assert.Equal(t, 1, mock.count("BestJoke"))

	prompt := bestPrompt.Load().(string)
	assert.True(t, strings.HasPrefix(prompt, "Below are a bunch of jokes about animals."))
	assert.Contains(t, prompt, strings.Join(final.Jokes, "\n\n"))
}

// jokeGauge tracks how many joke calls are in flight at once.
type jokeGauge struct {
	running, peak atomic.Int32
}

func (g *jokeGauge) enter() {
	n := g.running.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *jokeGauge) leave() { g.running.Add(-1) }

func TestJokeMapReduce_MaxConcurrency(t *testing.T) {
	subjects := []string{"a", "b", "c", "d"}
	var gauge jokeGauge
	handler := jokeHandler(subjects, 0)
	mock := newStructuredMock(func(ctx context.Context, function, prompt string) (string, error) {
		if function == "Joke" {
			gauge.enter()
			defer gauge.leave()
			time.Sleep(20 * time.Millisecond)
		}
		return handler(ctx, function, prompt)
	})

	final, err := newJokeGraph(t, mock, WithMaxConcurrency(2)).Invoke(context.Background(), JokesState{Topic: "letters"})
	require.NoError(t, err)
	assert.Len(t, final.Jokes, 4)
	assert.Equal(t, int32(2), gauge.peak.Load())
	assert.Equal(t, 1, mock.count("BestJoke"))
}

func TestJokeMapReduce_MappersRunConcurrently(t *testing.T) {
	subjects := []string{"a", "b", "c", "d"}
	var gauge jokeGauge
	var arrived atomic.Int32
	allStarted := make(chan struct{})
	handler := jokeHandler(subjects, 0)
	mock := newStructuredMock(func(ctx context.Context, function, prompt string) (string, error) {
		if function == "Joke" {
			gauge.enter()
			defer gauge.leave()
			// No joke is written until every subject's call is in flight.
			if arrived.Add(1) == int32(len(subjects)) {
				close(allStarted)
			}
			select {
			case <-allStarted:
			case <-time.After(2 * time.Second):
				return "", errors.New("joke calls did not overlap")
			}
		}
		return handler(ctx, function, prompt)
	})

	final, err := newJokeGraph(t, mock).Invoke(context.Background(), JokesState{Topic: "letters"})
	require.NoError(t, err)
	assert.Len(t, final.Jokes, 4)
	assert.Equal(t, int32(len(subjects)), gauge.peak.Load())
	assert.Equal(t, 1, mock.count("BestJoke"))
}

func TestJokeMapReduce_IndexOutOfRange(t *testing.T) {
	mock := newStructuredMock(jokeHandler([]string{"a", "b", "c"}, 3))

	_, err := newJokeGraph(t, mock).Invoke(context.Background(), JokesState{Topic: "letters"})
	require.Error(t, err)

	var rangeErr *IndexOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 3, rangeErr.Index)
	assert.Equal(t, 3, rangeErr.Len)
}

func TestJokeMapReduce_NegativeIndex(t *testing.T) {
	mock := newStructuredMock(jokeHandler([]string{"a"}, -1))

	_, err := newJokeGraph(t, mock).Invoke(context.Background(), JokesState{Topic: "letters"})
	var rangeErr *IndexOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, -1, rangeErr.Index)
}

func TestJokeMapReduce_NoSubjects(t *testing.T) {
	mock := newStructuredMock(jokeHandler(nil, 0))

	_, err := newJokeGraph(t, mock).Invoke(context.Background(), JokesState{Topic: "nothing"})
	assert.ErrorIs(t, err, ErrNoJokes)
	assert.Equal(t, 0, mock.count("Joke"))
	assert.Equal(t, 0, mock.count("BestJoke"))
}

func TestJokeMapReduce_MapperFailure(t *testing.T) {
	boom := errors.New("boom")
	handler := jokeHandler([]string{"a", "b", "c"}, 0)
	mock := newStructuredMock(func(ctx context.Context, function, prompt string) (string, error) {
		if function == "Joke" && strings.HasSuffix(prompt, "b") {
			return "", boom
		}
		return handler(ctx, function, prompt)
	})

	_, err := newJokeGraph(t, mock).Invoke(context.Background(), JokesState{Topic: "letters"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, model.ErrModelCall)
	assert.Contains(t, err.Error(), "error in node "+GenerateJokeNodeName)
	assert.Equal(t, 0, mock.count("BestJoke"))
}

func TestJokeMapReduce_InvalidPlan(t *testing.T) {
	mock := newStructuredMock(func(_ context.Context, function, _ string) (string, error) {
		return `{"subjects": "not a list"}`, nil
	})

	_, err := newJokeGraph(t, mock).Invoke(context.Background(), JokesState{Topic: "x"})
	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Subjects", schemaErr.Schema)
	assert.Equal(t, 0, mock.count("Joke"))
}

func TestJokeMapReduce_CustomPrompts(t *testing.T) {
	var prompts []string
	handler := jokeHandler([]string{"cats"}, 0)
	mock := newStructuredMock(func(ctx context.Context, function, prompt string) (string, error) {
		if function != "Joke" {
			prompts = append(prompts, prompt)
		}
		return handler(ctx, function, prompt)
	})

	g := newJokeGraph(t, mock, WithJokePrompts(JokePrompts{
		Subjects: "Sub-topics of {topic}, please.",
		BestJoke: "Pick one about {topic}: {jokes}",
	}))
	final, err := g.Invoke(context.Background(), JokesState{Topic: "pets"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Sub-topics of pets, please.",
		"Pick one about pets: joke about cats",
	}, prompts)
	assert.Equal(t, "joke about cats", final.BestSelectedJoke)
}

func TestJokesSchema(t *testing.T) {
	schema := NewJokesSchema()

	state, err := schema.Update(schema.Init(), JokesState{Topic: "animals"})
	require.NoError(t, err)
	state, err = schema.Update(state, JokesState{Subjects: []string{"a", "b"}})
	require.NoError(t, err)
	state, err = schema.Update(state, JokesState{Jokes: []string{"j1"}})
	require.NoError(t, err)
	state, err = schema.Update(state, JokesState{Jokes: []string{"j2"}})
	require.NoError(t, err)

	assert.Equal(t, JokesState{
		Topic:    "animals",
		Subjects: []string{"a", "b"},
		Jokes:    []string{"j1", "j2"},
	}, state)
}

func TestContinueToJokes(t *testing.T) {
	sends := continueToJokes(context.Background(), JokesState{Subjects: []string{"x", "y"}})
	assert.Equal(t, []graph.Send{
		{Node: GenerateJokeNodeName, Arg: JokeTask{Subject: "x"}},
		{Node: GenerateJokeNodeName, Arg: JokeTask{Subject: "y"}},
	}, sends)

	state := JokesState{Topic: "t", Subjects: []string{}}
	assert.Equal(t, []graph.Send{{Node: BestJokeNodeName, Arg: state}}, continueToJokes(context.Background(), state))
}

func TestJokeMapReduce_Tracing(t *testing.T) {
	tracer := graph.NewTracer()
	mock := newStructuredMock(jokeHandler([]string{"a", "b", "c"}, 0))

	_, err := newJokeGraph(t, mock, WithTracer(tracer)).Invoke(context.Background(), JokesState{Topic: "letters"})
	require.NoError(t, err)

	nodes := map[string]int{}
	for _, span := range tracer.GetSpans() {
		if span.Event == graph.TraceEventNodeEnd {
			nodes[span.NodeName]++
		}
	}
	assert.Equal(t, map[string]int{
		GenerateTopicsNodeName: 1,
		GenerateJokeNodeName:   3,
		BestJokeNodeName:       1,
	}, nodes)
}

