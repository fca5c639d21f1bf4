package segment

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// TimedWord is one recognized word from a speech transcription.
type TimedWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SliceTranscript assigns words to segments by start time and stores the
// joined text as each segment's transcript. Segments that receive no words
// keep their existing transcript.
func SliceTranscript(words []TimedWord, segs []Segment) {
	if len(words) == 0 || len(segs) == 0 {
		return
	}
	sorted := append([]TimedWord(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	buckets := make([][]string, len(segs))
	for _, w := range sorted {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		i := IndexAt(segs, w.Start)
		buckets[i] = append(buckets[i], text)
	}
	for i := range segs {
		if len(buckets[i]) > 0 {
			segs[i].Transcript = strings.Join(buckets[i], " ")
		}
	}
}

// SynthesizeTranscripts fills every segment's transcript from a canned,
// title-keyed course outline. Used when no real transcription exists.
func SynthesizeTranscripts(title string, segs []Segment) {
	outline := outlineFor(title)
	total := len(segs)
	for i := range segs {
		n := i + 1
		pct := int(math.Round(float64(n) / float64(total) * 100))
		if outline == nil {
			segs[i].Transcript = fmt.Sprintf(defaultOutline, strings.TrimSpace(title), pct)
			continue
		}
		line := outline.lines[min(n, len(outline.lines))-1]
		segs[i].Transcript = fmt.Sprintf(line, pct)
	}
}

type courseOutline struct {
	keywords []string
	lines    []string
}

const defaultOutline = "Welcome to %s! You are now %d%% through this course. This part covers the essential concepts and practical applications that build on earlier lessons and prepare you for the advanced topics ahead."

var outlines = []courseOutline{
	{
		keywords: []string{"javascript", "js"},
		lines: []string{
			"Welcome to JavaScript fundamentals. At %d%% of the course we look at variables, data types and how JavaScript runs in the browser.",
			"At %d%% we go deeper into functions and scope: declarations, expressions, arrow functions and how closures keep access to outer variables.",
			"At %d%% we cover object-oriented JavaScript: prototypes, classes, inheritance and modern ES6+ structure.",
			"At %d%% the focus is asynchronous programming with promises, async/await and handling API calls.",
			"At %d%% we finish with advanced patterns, error handling and practices for maintainable JavaScript.",
		},
	},
	{
		keywords: []string{"react"},
		lines: []string{
			"Welcome to React. At %d%% we meet the component model, JSX syntax and how the virtual DOM keeps updates efficient.",
			"At %d%% we explore hooks: useState and useEffect let function components hold state and run side effects.",
			"At %d%% we compose components and pass props between parents and children.",
			"At %d%% we look at state management with the Context API, lifting state and external stores.",
			"At %d%% we optimize with React.memo, useMemo, useCallback and code splitting.",
		},
	},
	{
		keywords: []string{"python", "ai", "machine learning"},
		lines: []string{
			"Welcome to Python for AI and machine learning. At %d%% we set up the environment and review the syntax that makes Python suited to data work.",
			"At %d%% we manipulate data with pandas and numpy before feeding it to learning algorithms.",
			"At %d%% we cover machine learning fundamentals: supervised versus unsupervised learning and choosing an approach.",
			"At %d%% we build neural networks with TensorFlow and Keras.",
			"At %d%% we evaluate models, avoid overfitting and deploy to production.",
		},
	},
	{
		keywords: []string{"data science", "analytics"},
		lines: []string{
			"Welcome to data science. At %d%% we walk through the methodology from problem definition to deployment.",
			"At %d%% we collect and clean data, handling missing values with pandas.",
			"At %d%% we run exploratory data analysis and visualize patterns with matplotlib and seaborn.",
			"At %d%% we test hypotheses, compute confidence intervals and judge statistical significance.",
			"At %d%% we build predictive models and communicate insights to stakeholders.",
		},
	},
	{
		keywords: []string{"html", "css", "web"},
		lines: []string{
			"Welcome to web development. At %d%% we structure documents with semantic HTML.",
			"At %d%% we learn CSS selectors, the box model, flexbox and grid.",
			"At %d%% we apply responsive design with mobile-first layouts and media queries.",
			"At %d%% we add animations and transitions for interactive interfaces.",
			"At %d%% we cover performance, accessibility and maintainable front-end code.",
		},
	},
}

func outlineFor(title string) *courseOutline {
	normalized := " " + strings.Join(strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ") + " "
	for i := range outlines {
		for _, kw := range outlines[i].keywords {
			if strings.Contains(normalized, " "+kw+" ") {
				return &outlines[i]
			}
		}
	}
	return nil
}
