package prebuilt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/model"
)

// Node names of the joke map-reduce graph.
const (
	GenerateTopicsNodeName = "generate_topics"
	GenerateJokeNodeName   = "generate_joke"
	BestJokeNodeName       = "best_joke"
)

// ErrNoJokes is returned by the best_joke node when there is nothing to
// choose from.
var ErrNoJokes = errors.New("no jokes to select from")

// IndexOutOfRangeError reports a selection index outside the joke list.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("selected joke index %d out of range [0, %d)", e.Index, e.Len)
}

// JokesState is the overall state of the joke map-reduce graph.
type JokesState struct {
	Topic            string
	Subjects         []string
	Jokes            []string
	BestSelectedJoke string
}

// JokeTask is the argument of a single generate_joke run.
type JokeTask struct {
	Subject string
}

// Subjects is the structured output of the planner.
type Subjects struct {
	Subjects []string `json:"subjects" description:"sub-topics related to the overall topic"`
}

// Joke is the structured output of a mapper.
type Joke struct {
	Joke string `json:"joke" description:"the joke"`
}

// BestJoke is the structured output of the reducer.
type BestJoke struct {
	ID int `json:"id" description:"index of the best joke, starting at 0"`
}

var (
	subjectsSchema = model.MustSchema[Subjects]("Subjects", "A list of sub-topics.")
	jokeSchema     = model.MustSchema[Joke]("Joke", "A single joke.")
	bestJokeSchema = model.MustSchema[BestJoke]("BestJoke", "The ID of the best joke.")
)

// NewJokesSchema returns the schema of JokesState. Topic, Subjects and
// BestSelectedJoke are replaced when an update sets them; Jokes accumulate.
func NewJokesSchema() *graph.StructSchema[JokesState] {
	return graph.NewStructSchema(JokesState{}, func(current, update JokesState) (JokesState, error) {
		if update.Topic != "" {
			current.Topic = update.Topic
		}
		if update.Subjects != nil {
			current.Subjects = update.Subjects
		}
		if update.BestSelectedJoke != "" {
			current.BestSelectedJoke = update.BestSelectedJoke
		}
		current.Jokes = graph.AppendSlice(current.Jokes, update.Jokes)
		return current, nil
	})
}

// JokePrompts holds the prompt templates. Placeholders are {topic},
// {subject} and {jokes}.
type JokePrompts struct {
	Subjects string
	Joke     string
	BestJoke string
}

// DefaultJokePrompts returns the built-in prompts.
func DefaultJokePrompts() JokePrompts {
	return JokePrompts{
		Subjects: "Generate a list of 3 sub-topics that are all related to this overall topic: {topic}.",
		Joke:     "Generate a joke about {subject}",
		BestJoke: "Below are a bunch of jokes about {topic}. Select the best one! Return the ID of the best one, starting 0 as the ID for the first joke. Jokes: \n\n  {jokes}",
	}
}

func formatPrompt(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}

// MapReduceOption configures CreateJokeMapReduce. Every GraphOption is also a
// MapReduceOption.
type MapReduceOption interface {
	applyMapReduce(*mapReduceOptions)
}

type mapReduceOptionFunc func(*mapReduceOptions)

func (f mapReduceOptionFunc) applyMapReduce(o *mapReduceOptions) { f(o) }

type mapReduceOptions struct {
	graphOptions
	maxConcurrency int
	prompts        JokePrompts
}

// WithMaxConcurrency bounds how many generate_joke runs execute at once.
// Zero means unbounded.
func WithMaxConcurrency(n int) MapReduceOption {
	return mapReduceOptionFunc(func(o *mapReduceOptions) {
		o.maxConcurrency = n
	})
}

// WithJokePrompts replaces the prompt templates. Empty fields keep the
// default.
func WithJokePrompts(p JokePrompts) MapReduceOption {
	return mapReduceOptionFunc(func(o *mapReduceOptions) {
		if p.Subjects != "" {
			o.prompts.Subjects = p.Subjects
		}
		if p.Joke != "" {
			o.prompts.Joke = p.Joke
		}
		if p.BestJoke != "" {
			o.prompts.BestJoke = p.BestJoke
		}
	})
}

// CreateJokeMapReduce builds the map-reduce graph:
//
//	generate_topics --continueToJokes--> generate_joke x N --> best_joke --> END
//
// generate_topics plans the subjects, one generate_joke runs per subject in a
// single superstep, and best_joke runs once after all of them have finished.
func CreateJokeMapReduce(caller *model.Caller, opts ...MapReduceOption) (*graph.StateRunnable[JokesState], error) {
	o := &mapReduceOptions{
		graphOptions: defaultGraphOptions(),
		prompts:      DefaultJokePrompts(),
	}
	for _, opt := range opts {
		opt.applyMapReduce(o)
	}

	m := &jokeMapReduce{caller: caller, prompts: o.prompts}

	workflow := graph.NewStateGraph[JokesState]()
	workflow.SetSchema(NewJokesSchema())
	workflow.SetMaxConcurrency(o.maxConcurrency)

	workflow.AddNode(GenerateTopicsNodeName, "Plans the subjects for the topic", m.generateTopics)
	graph.AddSendNode(workflow, GenerateJokeNodeName, "Writes one joke about a subject", m.generateJoke)
	workflow.AddNode(BestJokeNodeName, "Selects the best joke", m.bestJoke)

	workflow.SetEntryPoint(GenerateTopicsNodeName)
	workflow.AddFanOutEdge(GenerateTopicsNodeName, continueToJokes)
	workflow.AddEdge(GenerateJokeNodeName, BestJokeNodeName)
	workflow.AddEdge(BestJokeNodeName, graph.END)

	return compile(workflow, &o.graphOptions)
}

type jokeMapReduce struct {
	caller  *model.Caller
	prompts JokePrompts
}

func (m *jokeMapReduce) generateTopics(ctx context.Context, state JokesState) (JokesState, error) {
	prompt := formatPrompt(m.prompts.Subjects, "{topic}", state.Topic)
	out, err := subjectsSchema.Invoke(ctx, m.caller, prompt)
	if err != nil {
		return JokesState{}, err
	}
	subjects := out.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	return JokesState{Subjects: subjects}, nil
}

func (m *jokeMapReduce) generateJoke(ctx context.Context, task JokeTask) (JokesState, error) {
	prompt := formatPrompt(m.prompts.Joke, "{subject}", task.Subject)
	out, err := jokeSchema.Invoke(ctx, m.caller, prompt)
	if err != nil {
		return JokesState{}, err
	}
	return JokesState{Jokes: []string{out.Joke}}, nil
}

func (m *jokeMapReduce) bestJoke(ctx context.Context, state JokesState) (JokesState, error) {
	if len(state.Jokes) == 0 {
		return JokesState{}, ErrNoJokes
	}

	prompt := formatPrompt(m.prompts.BestJoke,
		"{topic}", state.Topic,
		"{jokes}", strings.Join(state.Jokes, "\n\n"))
	out, err := bestJokeSchema.Invoke(ctx, m.caller, prompt)
	if err != nil {
		return JokesState{}, err
	}
	if out.ID < 0 || out.ID >= len(state.Jokes) {
		return JokesState{}, &IndexOutOfRangeError{Index: out.ID, Len: len(state.Jokes)}
	}
	return JokesState{BestSelectedJoke: state.Jokes[out.ID]}, nil
}

// continueToJokes sends one JokeTask per subject. Without subjects it goes
// straight to best_joke with the current state.
func continueToJokes(_ context.Context, state JokesState) []graph.Send {
	if len(state.Subjects) == 0 {
		return []graph.Send{{Node: BestJokeNodeName, Arg: state}}
	}
	sends := make([]graph.Send, 0, len(state.Subjects))
	for _, s := range state.Subjects {
		sends = append(sends, graph.Send{Node: GenerateJokeNodeName, Arg: JokeTask{Subject: s}})
	}
	return sends
}
