package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

const defaultAnalysisType = "competitor_analysis"

// AnalysisService runs end to end competitor analysis: collect public
// data, compute benchmarks, ask the AI service for insights and fall
// back to locally derived insights when it is unreachable. Results are
// persisted so clients can fetch them later by id.
type AnalysisService interface {
	AnalyzeCompetitors(ctx context.Context, userID int64, req *transfer.CompetitorAnalysisRequest) (*models.AnalysisResult, error)
	GetAnalysis(ctx context.Context, userID int64, id string) (*models.AnalysisResult, error)
	ListAnalyses(ctx context.Context, userID int64, limit int) ([]*models.AnalysisResult, error)
}

type analysisService struct {
	ar         repository.AnalysisRepository
	competitor CompetitorService
	ai         AIClient
}

func NewAnalysisService(ar repository.AnalysisRepository, competitor CompetitorService, ai AIClient) AnalysisService {
	return &analysisService{
		ar:         ar,
		competitor: competitor,
		ai:         ai,
	}
}

func (s *analysisService) AnalyzeCompetitors(ctx context.Context, userID int64, req *transfer.CompetitorAnalysisRequest) (*models.AnalysisResult, error) {
	if req == nil {
		return nil, errors.New("analysis request is nil")
	}

	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = defaultAnalysisType
	}

	collection, err := s.competitor.Collect(ctx, userID, req.CompetitorURLs, &req.Options)
	if err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{
		ID:           uuid.NewString(),
		UserID:       userID,
		AnalysisType: analysisType,
	}

	competitorData, err := json.Marshal(collection)
	if err != nil {
		return nil, err
	}
	result.CompetitorData = competitorData

	// Nothing collected at all means there is nothing to analyze.
	if len(collection.Competitors) == 0 {
		result.Status = models.AnalysisStatusFailed
		failures, _ := json.Marshal(map[string]any{
			"reason":   "no competitor data could be collected",
			"failures": collection.Failures,
		})
		result.Insights = failures

		if _, err := s.ar.Create(ctx, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	benchmarks := buildBenchmarks(collection.Competitors)
	benchmarkData, err := json.Marshal(benchmarks)
	if err != nil {
		return nil, err
	}
	result.Benchmarks = benchmarkData

	payload := &transfer.AIAnalysisPayload{
		AnalysisType: analysisType,
		Competitors:  collection.Competitors,
		Benchmarks:   benchmarks,
	}

	insights, err := s.ai.AnalyzeCompetitors(ctx, payload)
	if err != nil {
		slog.Info(fmt.Sprintf("falling back to local insights: %v", err))
		insights = buildBasicInsights(collection.Competitors, benchmarks)
		result.Status = models.AnalysisStatusCompletedBasic
		result.UsedFallback = true
	} else {
		result.Status = models.AnalysisStatusCompleted
	}

	insightData, err := json.Marshal(insights)
	if err != nil {
		return nil, err
	}
	result.Insights = insightData

	if _, err := s.ar.Create(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *analysisService) GetAnalysis(ctx context.Context, userID int64, id string) (*models.AnalysisResult, error) {
	result, err := s.ar.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == nil || result.UserID != userID {
		err = errors.New("analysis not found")
		slog.Info(err.Error())
		return nil, err
	}
	return result, nil
}

func (s *analysisService) ListAnalyses(ctx context.Context, userID int64, limit int) ([]*models.AnalysisResult, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.ar.ListByUserID(ctx, userID, limit)
}

func buildBenchmarks(competitors []*transfer.CompetitorSnapshot) *transfer.Benchmarks {
	benchmarks := &transfer.Benchmarks{
		Competitors: len(competitors),
	}
	if len(competitors) == 0 {
		return benchmarks
	}

	followers := make([]float64, 0, len(competitors))
	rates := make([]float64, 0, len(competitors))
	types := make(map[string]int)

	for _, competitor := range competitors {
		if competitor.Profile != nil {
			followers = append(followers, float64(competitor.Profile.Followers))
		}
		if competitor.Engagement != nil {
			benchmarks.PostsAnalyzed += competitor.Engagement.PostsAnalyzed
			if competitor.Engagement.PostsAnalyzed > 0 {
				rates = append(rates, competitor.Engagement.EngagementRate)
				if competitor.Engagement.EngagementRate > benchmarks.BestEngagementRate {
					benchmarks.BestEngagementRate = competitor.Engagement.EngagementRate
				}
			}
		}
		if competitor.ContentPatterns != nil {
			for postType, count := range competitor.ContentPatterns.TypeHistogram {
				types[postType] += count
			}
		}
	}

	if len(followers) > 0 {
		benchmarks.AvgFollowers = round2(stat.Mean(followers, nil))
	}
	if len(rates) > 0 {
		benchmarks.AvgEngagementRate = round2(stat.Mean(rates, nil))
	}
	benchmarks.DominantType = dominantType(types)

	return benchmarks
}

func dominantType(types map[string]int) string {
	best := ""
	bestCount := 0
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, postType := range keys {
		if types[postType] > bestCount {
			best = postType
			bestCount = types[postType]
		}
	}
	return best
}

// buildBasicInsights derives a readable summary from the aggregates
// alone. It is what users get when the AI service cannot be reached.
func buildBasicInsights(competitors []*transfer.CompetitorSnapshot, benchmarks *transfer.Benchmarks) *transfer.AIInsights {
	insights := &transfer.AIInsights{}

	if benchmarks.DominantType != "" {
		insights.MarketInsights = append(insights.MarketInsights,
			fmt.Sprintf("%s content dominates across the analyzed competitors", benchmarks.DominantType))
	}
	if benchmarks.AvgEngagementRate > 0 {
		insights.MarketInsights = append(insights.MarketInsights,
			fmt.Sprintf("average engagement rate across competitors is %.2f%%", benchmarks.AvgEngagementRate))
	}

	var best *transfer.CompetitorSnapshot
	for _, competitor := range competitors {
		if competitor.Engagement == nil || competitor.Engagement.PostsAnalyzed == 0 {
			continue
		}
		if best == nil || competitor.Engagement.EngagementRate > best.Engagement.EngagementRate {
			best = competitor
		}
	}
	if best != nil {
		insights.MarketInsights = append(insights.MarketInsights,
			fmt.Sprintf("@%s leads on engagement at %.2f%% over %d posts",
				best.Handle, best.Engagement.EngagementRate, best.Engagement.PostsAnalyzed))
	}

	hashtags := make(map[string]int)
	hours := make(map[string]int)
	for _, competitor := range competitors {
		if competitor.ContentPatterns == nil {
			continue
		}
		for _, tag := range competitor.ContentPatterns.TopHashtags {
			hashtags[tag.Tag] += tag.Count
		}
		for _, hour := range competitor.ContentPatterns.TopPostingHours {
			hours[hour.Hour] += hour.Count
		}
	}

	if benchmarks.DominantType != "" {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("lean into %s posts; that format earns the most activity in this niche", benchmarks.DominantType))
	}
	if topHour := topKey(hours); topHour != "" {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("competitors see the most activity posting around %s", topHour))
	}
	if topTags := topKeys(hashtags, 5); len(topTags) > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("frequently used hashtags worth testing: #%s", joinTags(topTags)))
		for _, tag := range topTags {
			insights.ContentIdeas = append(insights.ContentIdeas,
				fmt.Sprintf("a %s post built around #%s", fallbackType(benchmarks.DominantType), tag))
			if len(insights.ContentIdeas) >= 3 {
				break
			}
		}
	}

	if len(insights.MarketInsights) == 0 {
		insights.MarketInsights = append(insights.MarketInsights,
			"not enough public data was available to derive market insights")
	}

	return insights
}

func fallbackType(postType string) string {
	if postType == "" {
		return "short"
	}
	return postType
}

func topKey(counts map[string]int) string {
	keys := topKeys(counts, 1)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func topKeys(counts map[string]int, limit int) []string {
	type kv struct {
		key   string
		count int
	}
	pairs := make([]kv, 0, len(counts))
	for k, v := range counts {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].key < pairs[j].key
	})

	keys := make([]string, 0, limit)
	for _, pair := range pairs {
		keys = append(keys, pair.key)
		if len(keys) == limit {
			break
		}
	}
	return keys
}

func joinTags(tags []string) string {
	out := ""
	for i, tag := range tags {
		if i > 0 {
			out += " #"
		}
		out += tag
	}
	return out
}
