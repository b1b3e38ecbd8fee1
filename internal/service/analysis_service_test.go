package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

func sampleCollection() *transfer.CompetitorCollection {
	return &transfer.CompetitorCollection{
		Competitors: []*transfer.CompetitorSnapshot{
			{
				URL:      "https://twitter.com/acme",
				Platform: models.PlatformTwitter,
				Handle:   "acme",
				Profile:  &transfer.CompetitorProfile{Username: "acme", Followers: 1000},
				ContentPatterns: &transfer.ContentPatterns{
					TypeHistogram:   map[string]int{"text": 9, "image": 2},
					TopHashtags:     []transfer.HashtagCount{{Tag: "golang", Count: 4}},
					TopPostingHours: []transfer.HourCount{{Hour: "09:00", Count: 5}},
				},
				Engagement: &transfer.EngagementSummary{
					EngagementRate: 4.5,
					PostsAnalyzed:  10,
					Trend:          TrendStable,
				},
			},
			{
				URL:      "https://twitter.com/rival",
				Platform: models.PlatformTwitter,
				Handle:   "rival",
				Profile:  &transfer.CompetitorProfile{Username: "rival", Followers: 3000},
				ContentPatterns: &transfer.ContentPatterns{
					TypeHistogram: map[string]int{"image": 6},
				},
				Engagement: &transfer.EngagementSummary{
					EngagementRate: 7.5,
					PostsAnalyzed:  6,
					Trend:          TrendIncreasing,
				},
			},
		},
	}
}

func analysisRequest() *transfer.CompetitorAnalysisRequest {
	return &transfer.CompetitorAnalysisRequest{
		CompetitorURLs: []string{"https://twitter.com/acme", "https://twitter.com/rival"},
	}
}

func TestAnalyzeCompetitorsWithAI(t *testing.T) {
	repo := &fakeAnalysisRepo{}
	ai := &fakeAIClient{insights: &transfer.AIInsights{
		MarketInsights:  []string{"short-form video is underused in this niche"},
		Recommendations: []string{"post more reels"},
	}}
	svc := &analysisService{
		ar:         repo,
		competitor: &fakeCompetitorService{collection: sampleCollection()},
		ai:         ai,
	}

	result, err := svc.AnalyzeCompetitors(context.Background(), 7, analysisRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, models.AnalysisStatusCompleted, result.Status)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, "competitor_analysis", result.AnalysisType)

	var insights transfer.AIInsights
	require.NoError(t, json.Unmarshal(result.Insights, &insights))
	assert.Equal(t, []string{"short-form video is underused in this niche"}, insights.MarketInsights)

	// The AI payload carries the collected data and the benchmarks.
	require.Len(t, ai.payloads, 1)
	assert.Len(t, ai.payloads[0].Competitors, 2)
	require.NotNil(t, ai.payloads[0].Benchmarks)

	require.Len(t, repo.created, 1)
	assert.Same(t, result, repo.created[0])
}

func TestAnalyzeCompetitorsFallsBackWhenAIFails(t *testing.T) {
	repo := &fakeAnalysisRepo{}
	svc := &analysisService{
		ar:         repo,
		competitor: &fakeCompetitorService{collection: sampleCollection()},
		ai:         &fakeAIClient{err: assert.AnError},
	}

	result, err := svc.AnalyzeCompetitors(context.Background(), 7, analysisRequest())
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompletedBasic, result.Status)
	assert.True(t, result.UsedFallback)

	var insights transfer.AIInsights
	require.NoError(t, json.Unmarshal(result.Insights, &insights))
	assert.NotEmpty(t, insights.MarketInsights)
	assert.NotEmpty(t, insights.Recommendations)
	require.Len(t, repo.created, 1)
}

func TestAnalyzeCompetitorsNothingCollected(t *testing.T) {
	repo := &fakeAnalysisRepo{}
	collection := &transfer.CompetitorCollection{
		Failures: []*transfer.CompetitorFailure{
			{URL: "https://twitter.com/gone", ErrorKind: "not_found", Message: "no such user"},
		},
	}
	svc := &analysisService{
		ar:         repo,
		competitor: &fakeCompetitorService{collection: collection},
		ai:         &fakeAIClient{},
	}

	result, err := svc.AnalyzeCompetitors(context.Background(), 7, analysisRequest())
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, result.Status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(result.Insights, &body))
	assert.Contains(t, body["reason"], "no competitor data")
	require.Len(t, repo.created, 1)
}

func TestAnalyzeCompetitorsCollectError(t *testing.T) {
	svc := &analysisService{
		ar:         &fakeAnalysisRepo{},
		competitor: &fakeCompetitorService{err: assert.AnError},
		ai:         &fakeAIClient{},
	}

	_, err := svc.AnalyzeCompetitors(context.Background(), 7, analysisRequest())
	require.Error(t, err)
}

func TestAnalyzeCompetitorsCustomType(t *testing.T) {
	svc := &analysisService{
		ar:         &fakeAnalysisRepo{},
		competitor: &fakeCompetitorService{collection: sampleCollection()},
		ai:         &fakeAIClient{insights: &transfer.AIInsights{}},
	}

	req := analysisRequest()
	req.AnalysisType = "content_gaps"

	result, err := svc.AnalyzeCompetitors(context.Background(), 7, req)
	require.NoError(t, err)
	assert.Equal(t, "content_gaps", result.AnalysisType)
}

func TestBuildBenchmarks(t *testing.T) {
	benchmarks := buildBenchmarks(sampleCollection().Competitors)

	assert.Equal(t, 2, benchmarks.Competitors)
	assert.Equal(t, 16, benchmarks.PostsAnalyzed)
	assert.Equal(t, 2000.0, benchmarks.AvgFollowers)
	assert.Equal(t, 6.0, benchmarks.AvgEngagementRate)
	assert.Equal(t, 7.5, benchmarks.BestEngagementRate)
	assert.Equal(t, "text", benchmarks.DominantType)
}

func TestBuildBenchmarksEmpty(t *testing.T) {
	benchmarks := buildBenchmarks(nil)
	assert.Equal(t, 0, benchmarks.Competitors)
	assert.Zero(t, benchmarks.AvgFollowers)
	assert.Empty(t, benchmarks.DominantType)
}

func TestBuildBasicInsights(t *testing.T) {
	competitors := sampleCollection().Competitors
	benchmarks := buildBenchmarks(competitors)

	insights := buildBasicInsights(competitors, benchmarks)

	require.NotEmpty(t, insights.MarketInsights)
	assert.Contains(t, insights.MarketInsights[0], "text content dominates")

	joined := ""
	for _, insight := range insights.MarketInsights {
		joined += insight + "\n"
	}
	assert.Contains(t, joined, "@rival leads on engagement at 7.50%")

	require.NotEmpty(t, insights.Recommendations)
	recommendations := ""
	for _, rec := range insights.Recommendations {
		recommendations += rec + "\n"
	}
	assert.Contains(t, recommendations, "09:00")
	assert.Contains(t, recommendations, "#golang")
	assert.NotEmpty(t, insights.ContentIdeas)
}

func TestBuildBasicInsightsNoData(t *testing.T) {
	insights := buildBasicInsights(nil, &transfer.Benchmarks{})
	require.Len(t, insights.MarketInsights, 1)
	assert.Contains(t, insights.MarketInsights[0], "not enough public data")
	assert.Empty(t, insights.Recommendations)
}

func TestGetAnalysisChecksOwnership(t *testing.T) {
	repo := &fakeAnalysisRepo{}
	svc := &analysisService{ar: repo, competitor: &fakeCompetitorService{}, ai: &fakeAIClient{}}

	_, err := repo.Create(context.Background(), &models.AnalysisResult{ID: "abc", UserID: 7})
	require.NoError(t, err)

	result, err := svc.GetAnalysis(context.Background(), 7, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", result.ID)

	_, err = svc.GetAnalysis(context.Background(), 99, "abc")
	require.Error(t, err)

	_, err = svc.GetAnalysis(context.Background(), 7, "missing")
	require.Error(t, err)
}
