// Package filter scores collected news items for relevance and drops
// the ones that have nothing to do with gaming revenue or player
// traffic. Filtering is purely lexical so a batch can be cut down
// before any LLM call is spent on it.
package filter

import (
	"strings"

	"github.com/seenimoa/newspulse/pkg/models"
)

// excludeKeywords lists patterns that mark an item as noise regardless
// of anything else it matches. Note: plain "protest" stays out of this
// list because protests do affect traffic.
var excludeKeywords = []string{
	// military / defense
	"자주포", "전차", "미사일", "무기", "방산", "국방",
	"defense contract", "military contract", "arms deal",
	// entertainment
	"k-pop", "idol", "아이돌", "걸그룹", "보이그룹",
	"콘서트", "앨범", "concert", "album", "fan meeting",
	"드라마", "예능", "시청률", "netflix", "disney+", "ost",
	"awards", "시상식",
	// narrowly scoped protests
	"immigration protest", "hindu protest", "farmer protest",
	// traditional sports
	"프로축구", "프로야구", "nba", "mlb", "구원투수", "스토브리그",
	// finance / markets
	"증시", "코스피", "코스닥", "주가", "stock price",
	"quarterly earnings", "dividend", "ipo", "공모주",
	// ads and hiring
	"광고", "협찬", "마케팅", "보도자료", "campaign", "promotion",
	"sponsored", "sponsorship", "affiliate",
	"채용", "공채", "job opening", "hiring", "recruitment",
	// consumer brands, fashion, food
	"스타벅스", "맥도날드", "버거킹", "초콜릿", "coffee",
	"패션", "fashion", "뷰티", "beauty", "화장품", "cosmetic",
	"쇼핑", "shopping",
	// general politics and misc
	"대통령", "국회", "외교부", "정상회담",
	"부동산", "real estate", "weather forecast",
	"맛집", "restaurant", "travel tip",
}

// gamingKeywords must match for an item to count as gaming news.
var gamingKeywords = []string{
	"pubg", "펍지", "배틀그라운드", "krafton", "크래프톤", "bgmi",
	"free fire", "프리파이어", "call of duty", "콜오브듀티",
	"mobile game", "모바일 게임", "모바일게임",
	"esports", "e-sports", "이스포츠", "pmgc", "pmpl",
	"게임 업데이트", "게임 패치", "게임 대회",
}

// trafficKeywords must match for an item to count as traffic-impact
// news (events that move player counts without being about the game).
var trafficKeywords = []string{
	"인터넷 차단", "internet shutdown", "통신 장애", "network outage",
	"정전", "power outage", "지진", "earthquake", "태풍", "typhoon",
	"홍수", "flood", "전쟁", "war", "폭발", "explosion", "테러",
	"공휴일", "holiday", "연휴", "명절", "방학", "시험",
	"시위", "protest", "폭동", "riot", "계엄", "curfew",
}

// continentByCountry maps recognized markets onto treemap regions.
var continentByCountry = map[string]string{
	"USA": "NORTH AMERICA", "Canada": "NORTH AMERICA", "Mexico": "NORTH AMERICA",
	"Brazil": "SOUTH AMERICA", "Argentina": "SOUTH AMERICA",
	"Germany": "EUROPE", "UK": "EUROPE", "France": "EUROPE", "Italy": "EUROPE", "Spain": "EUROPE",
	"China": "ASIA", "India": "ASIA", "Japan": "ASIA", "Korea": "ASIA", "South Korea": "ASIA",
	"Pakistan": "ASIA", "Indonesia": "ASIA", "Turkey": "ASIA", "Vietnam": "ASIA", "Thailand": "ASIA",
	"South Africa": "AFRICA", "Egypt": "AFRICA", "Nigeria": "AFRICA",
	"Australia": "OCEANIA", "New Zealand": "OCEANIA",
	"Russia": "RUSSIA & CIS",
}

// Categories assigned by the lexical pass.
const (
	CategoryGaming  = "gaming"
	CategoryTraffic = "traffic_impact"
)

// Continent returns the treemap region for a country, or "OTHER" for
// markets outside the map.
func Continent(country string) string {
	if c, ok := continentByCountry[country]; ok {
		return c
	}
	return "OTHER"
}

// Filter applies the lexical relevance rules.
type Filter struct{}

// New creates a Filter.
func New() *Filter {
	return &Filter{}
}

// Apply scores each collected item. Items that match an exclusion
// keyword or neither required list are dropped; the rest come back as
// FilterResults with a deterministic relevance score in [0, 1].
func (f *Filter) Apply(items []models.NewsItem) []models.FilterResult {
	out := make([]models.FilterResult, 0, len(items))
	for _, item := range items {
		text := strings.ToLower(item.Title + " " + item.RawText)
		if matchesAny(text, excludeKeywords) {
			continue
		}

		gaming := countMatches(text, gamingKeywords)
		traffic := countMatches(text, trafficKeywords)
		if gaming == 0 && traffic == 0 {
			continue
		}

		res := models.FilterResult{
			NewsItem:       item,
			RelevanceScore: score(text, gaming, traffic),
			Direction:      models.DirectionNeutral,
		}
		if country := detectCountry(text); country != "" {
			res.MatchedCountry = country
			res.Continent = Continent(country)
		}
		out = append(out, res)
	}
	return out
}

// score favors gaming matches over traffic matches and adds a bonus
// when the game itself appears in the title.
func score(text string, gaming, traffic int) float64 {
	s := 0.3 + 0.15*float64(gaming) + 0.1*float64(traffic)
	if strings.Contains(text, "pubg") || strings.Contains(text, "배틀그라운드") || strings.Contains(text, "bgmi") {
		s += 0.2
	}
	if s > 1.0 {
		s = 1.0
	}
	return s
}

// Category reports which lexical bucket an item falls into. Gaming
// wins when an item matches both lists.
func Category(item models.NewsItem) string {
	text := strings.ToLower(item.Title + " " + item.RawText)
	if matchesAny(text, gamingKeywords) {
		return CategoryGaming
	}
	if matchesAny(text, trafficKeywords) {
		return CategoryTraffic
	}
	return ""
}

// countryOrder fixes the scan order so detection is deterministic.
// More specific names come before their substrings ("South Korea"
// before "Korea").
var countryOrder = []string{
	"South Korea", "South Africa", "New Zealand",
	"USA", "Canada", "Mexico", "Brazil", "Argentina",
	"Germany", "UK", "France", "Italy", "Spain",
	"China", "India", "Japan", "Korea",
	"Pakistan", "Indonesia", "Turkey", "Vietnam", "Thailand",
	"Egypt", "Nigeria", "Australia", "Russia",
}

func detectCountry(text string) string {
	for _, country := range countryOrder {
		if strings.Contains(text, strings.ToLower(country)) {
			return country
		}
	}
	return ""
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}
