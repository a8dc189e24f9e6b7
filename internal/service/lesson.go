package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/events"
	"github.com/sakif/accessai/internal/learning"
	"github.com/sakif/accessai/internal/llm"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/repository"
)

// MaxChallengeCodeLength bounds a submitted solution, in characters.
const MaxChallengeCodeLength = 20000

const (
	lessonSystem = "You are AccessAI, a patient programming teacher. Write in Markdown."

	verdictPrefix    = "VERDICT:"
	verdictCorrect   = "CORRECT"
	verdictIncorrect = "INCORRECT"
)

// LessonContent is a generated lesson.
type LessonContent struct {
	Lesson  model.Lesson `json:"lesson"`
	Content string       `json:"content"`
}

// ChallengeResult is the evaluation of a submitted solution together with
// the caller's progress afterwards.
type ChallengeResult struct {
	Feedback     string   `json:"feedback"`
	Correct      bool     `json:"correct"`
	Points       int      `json:"points"`
	Level        int      `json:"level"`
	Achievements []string `json:"achievements"`
}

type LessonService struct {
	completer    llm.Completer
	users        repository.UserRepository
	gamification *GamificationService
	publisher    events.Publisher
	logger       *slog.Logger
}

func NewLessonService(
	completer llm.Completer,
	users repository.UserRepository,
	gamification *GamificationService,
	publisher events.Publisher,
	logger *slog.Logger,
) *LessonService {
	return &LessonService{
		completer:    completer,
		users:        users,
		gamification: gamification,
		publisher:    publisher,
		logger:       logger,
	}
}

// LessonKey is the achievement recorded when a lesson's challenge is solved.
// Its presence stops the lesson from paying out twice.
func LessonKey(language string, id int) string {
	return "lesson:" + language + ":" + strconv.Itoa(id)
}

func findLesson(language string, id int) (model.Lesson, error) {
	language = strings.ToLower(language)
	if _, ok := learning.Path(language); !ok {
		return model.Lesson{}, apperror.NotFound("learning path", language)
	}
	lesson, ok := learning.Lesson(language, id)
	if !ok {
		return model.Lesson{}, apperror.NotFound("lesson", strconv.Itoa(id))
	}
	return lesson, nil
}

func lessonPrompt(language string, lesson model.Lesson) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide a detailed lesson on %q for %s in Markdown format. Include:\n", lesson.Title, language)
	b.WriteString("- An introduction to the topic\n")
	b.WriteString("- Key concepts with code examples\n")
	b.WriteString("- A coding challenge for the learner\n")
	b.WriteString("- An explanation of the solution\n")
	if language == "solidity" {
		b.WriteString("Explain the blockchain context: how contracts are deployed, what gas is, and why immutability matters.\n")
	}
	return b.String()
}

func evaluationPrompt(language string, lesson model.Lesson, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate the following %s code for the challenge in the lesson %q.\n", language, lesson.Title)
	fmt.Fprintf(&b, "Start your answer with a single line that is exactly %q or %q.\n",
		verdictPrefix+" "+verdictCorrect, verdictPrefix+" "+verdictIncorrect)
	b.WriteString("Then give feedback on correctness and suggest improvements.\n\n")
	fmt.Fprintf(&b, "```%s\n%s\n```", language, code)
	return b.String()
}

// ParseVerdict reads the verdict line from an evaluation. A reply without a
// recognisable verdict counts as incorrect.
func ParseVerdict(feedback string) bool {
	for _, line := range strings.Split(feedback, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "*_#> ")
		upper := strings.ToUpper(line)
		if !strings.HasPrefix(upper, verdictPrefix) {
			continue
		}
		v := strings.Trim(strings.TrimSpace(upper[len(verdictPrefix):]), "*_.! ")
		return v == verdictCorrect
	}
	return false
}

// StartLesson generates the lesson text.
func (s *LessonService) StartLesson(ctx context.Context, userID, language string, id int) (*LessonContent, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("missing user identity")
	}
	language = strings.ToLower(language)
	lesson, err := findLesson(language, id)
	if err != nil {
		return nil, err
	}

	content, err := s.completer.Complete(ctx, llm.CompletionRequest{
		System: lessonSystem,
		Prompt: lessonPrompt(language, lesson),
	})
	if err != nil {
		return nil, apperror.Upstream("lesson generation failed", err)
	}

	s.logger.Info("lesson started",
		slog.String("userID", userID),
		slog.String("language", language),
		slog.Int("lesson", id),
	)
	return &LessonContent{Lesson: lesson, Content: content}, nil
}

// SubmitChallenge has the solution evaluated. A correct first solution earns
// the lesson's points plus every badge whose threshold is now reached.
func (s *LessonService) SubmitChallenge(ctx context.Context, userID, language string, id int, code string) (*ChallengeResult, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("missing user identity")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if utf8.RuneCountInString(code) > MaxChallengeCodeLength {
		return nil, apperror.ValidationFailed("code", fmt.Sprintf("code must be at most %d characters", MaxChallengeCodeLength))
	}
	language = strings.ToLower(language)
	lesson, err := findLesson(language, id)
	if err != nil {
		return nil, err
	}

	feedback, err := s.completer.Complete(ctx, llm.CompletionRequest{
		System: lessonSystem,
		Prompt: evaluationPrompt(language, lesson, code),
	})
	if err != nil {
		return nil, apperror.Upstream("challenge evaluation failed", err)
	}
	correct := ParseVerdict(feedback)

	var user *model.User
	if correct {
		key := LessonKey(language, id)
		first := false
		user, err = s.gamification.Progress(ctx, userID, SourceLesson, func(u *model.User) error {
			if !u.AddAchievement(key) {
				return nil
			}
			first = true
			u.Points += lesson.Points
			for _, b := range learning.EarnedBadges(u.Points) {
				u.AddAchievement(b.Name)
			}
			return nil
		})
		if err == nil && first {
			s.publisher.Publish(ctx, events.New(events.TypeLessonFinished, userID, map[string]any{
				"language": language,
				"lesson":   id,
			}))
		}
	} else {
		user, err = s.users.GetByID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	return &ChallengeResult{
		Feedback:     feedback,
		Correct:      correct,
		Points:       user.Points,
		Level:        user.Level,
		Achievements: user.Public().Achievements,
	}, nil
}
