package domain

import (
	"sort"
	"strings"
	"unicode"
)

// Taxonomía de clasificación de títulos de mercado. Dos sistemas:
//   - categorías amplias (mayúsculas) para el scoring por categoría y el
//     matching categoría↔trader de las señales,
//   - tags de dominio (estilo web de Polymarket, con sub-categorías y
//     padres) para el perfil del trader.

type categoryEntry struct {
	name     string
	keywords []string
}

// El orden importa: ClassifyCategory devuelve la primera categoría con match.
var categoryKeywords = []categoryEntry{
	{"POLITICS", []string{
		"president", "election", "trump", "biden", "congress", "senate",
		"governor", "democrat", "republican", "vote", "political", "minister",
		"parliament", "gop", "dnc", "rnc", "primary", "inaugur",
	}},
	{"CRYPTO", []string{
		"bitcoin", "btc", "ethereum", "eth", "crypto", "token", "defi",
		"blockchain", "solana", "sol", "nft", "coin", "binance", "mining",
	}},
	{"ESPORTS", []string{
		"league of legends", "dota", "csgo", "cs2", "counter-strike",
		"valorant", "overwatch", "esports", "e-sports", "starcraft",
		"lck", "lpl", "lec", "lcs", "worlds 20",
	}},
	{"SPORTS", []string{
		"nba", "nfl", "mlb", "nhl", "soccer", "football", "basketball",
		"baseball", "tennis", "ufc", "boxing", "championship", "super bowl",
		"world cup", "olympics", "playoff", "mvp",
	}},
	{"CULTURE", []string{
		"oscar", "grammy", "emmy", "movie", "film", "album", "spotify",
		"tiktok", "youtube", "celebrity", "twitter", "music", "award",
	}},
	{"WEATHER", []string{
		"hurricane", "temperature", "weather", "storm", "rain", "snow",
		"tornado", "flood", "climate",
	}},
	{"TECH", []string{
		"apple", "google", "microsoft", "openai", "ai", "artificial intelligence",
		"spacex", "tesla", "launch", "iphone", "chip",
	}},
	{"FINANCE", []string{
		"stock", "s&p", "nasdaq", "fed", "interest rate", "inflation",
		"gdp", "recession", "earnings", "ipo",
	}},
}

// Tags de dominio: categorías top-level de la web de Polymarket más
// sub-categorías. Un tag hijo añade automáticamente al padre.
var domainKeywords = []categoryEntry{
	{"Politics", []string{
		"president", "election", "trump", "biden", "congress", "senate",
		"governor", "democrat", "republican", "vote", "political", "minister",
		"parliament", "gop", "dnc", "rnc", "primary", "inaugur",
		"legislation", "supreme court", "executive order", "white house",
		"vance", "desantis", "newsom", "rfk", "kamala", "harris",
	}},
	{"Crypto", []string{
		"bitcoin", "btc", "ethereum", "eth", "crypto", "token", "defi",
		"blockchain", "solana", "sol", "nft", "coin", "binance", "mining",
		"airdrop", "staking", "altcoin", "memecoin", "doge", "xrp",
		"cardano", "ada", "polygon", "matic", "avax", "bnb",
	}},
	{"Sports", []string{
		"sports", "athlete", "championship", "playoff", "tournament",
		"world cup", "olympics", "mvp", "medal", "coach", "draft",
		"season", "standings", "division", "conference",
	}},
	{"Pop Culture", []string{
		"oscar", "grammy", "emmy", "movie", "film", "album", "spotify",
		"tiktok", "youtube", "celebrity", "twitter", "music", "award",
		"netflix", "streaming", "box office", "tv show", "reality",
		"kardashian", "taylor swift", "drake", "kanye", "beyonce",
		"instagram", "viral", "podcast",
	}},
	{"Business", []string{
		"stock", "s&p", "nasdaq", "fed", "interest rate", "inflation",
		"gdp", "recession", "earnings", "ipo", "company", "ceo",
		"economy", "market cap", "revenue", "dow jones", "treasury",
		"unemployment", "tariff", "trade war", "debt ceiling",
	}},
	{"Science", []string{
		"climate", "nasa", "space", "satellite", "vaccine",
		"disease", "health", "research", "study", "fda",
		"hurricane", "temperature", "weather", "storm", "tornado",
		"earthquake", "wildfire", "pandemic", "virus",
	}},
	{"NBA", []string{
		"nba", "basketball", "lakers", "celtics", "warriors", "nets",
		"bucks", "nuggets", "knicks", "sixers", "mavericks", "heat",
		"suns", "clippers", "rockets", "spurs", "raptors", "76ers",
	}},
	{"NFL", []string{
		"nfl", "super bowl", "football", "touchdown", "quarterback",
		"chiefs", "eagles", "cowboys", "patriots", "packers", "49ers",
		"ravens", "bills", "dolphins", "steelers", "bears",
	}},
	{"NHL", []string{
		"nhl", "hockey", "stanley cup", "bruins", "rangers", "penguins",
		"maple leafs", "canadiens", "oilers", "avalanche", "panthers",
	}},
	{"MLB", []string{
		"mlb", "baseball", "world series", "home run", "yankees",
		"dodgers", "red sox", "cubs", "astros", "mets", "braves",
	}},
	{"Soccer", []string{
		"soccer", "premier league", "la liga", "bundesliga", "serie a",
		"champions league", "mls", "euro 20", "copa america", "copa libertadores",
		"arsenal", "barcelona", "real madrid", "manchester", "liverpool",
		"chelsea", "bayern", "psg", "juventus", "inter milan",
	}},
	{"MMA", []string{
		"ufc", "mma", "boxing", "fight night", "bellator",
		"knockout", "wrestling", "submission",
	}},
	{"Tennis", []string{
		"tennis", "wimbledon", "australian open", "french open",
		"roland garros", "atp", "wta",
	}},
	{"AI", []string{
		"openai", "ai", "artificial intelligence", "gpt", "chatgpt",
		"machine learning", "deepmind", "gemini", "llm", "neural",
		"anthropic", "claude", "midjourney", "stable diffusion",
	}},
	{"Esports", []string{
		"league of legends", "dota", "csgo", "cs2", "counter-strike",
		"valorant", "overwatch", "esports", "e-sports", "starcraft",
		"lck", "lpl", "lec", "lcs", "worlds 20", "major qualifier",
	}},
}

// Un tag de sub-categoría añade también a su padre.
var domainParents = map[string]string{
	"NBA":    "Sports",
	"NFL":    "Sports",
	"NHL":    "Sports",
	"MLB":    "Sports",
	"Soccer": "Sports",
	"MMA":    "Sports",
	"Tennis": "Sports",
	"AI":     "Science",
}

// ClassifyCategory devuelve la primera categoría amplia cuyo keyword aparece
// en el título, o "" si ninguno encaja.
func ClassifyCategory(title string) string {
	if title == "" {
		return ""
	}
	lower := strings.ToLower(title)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if keywordMatch(kw, lower) {
				return entry.name
			}
		}
	}
	return ""
}

// ClassifyDomains devuelve todos los tags de dominio que encajan con el
// título, padres incluidos, en orden alfabético.
func ClassifyDomains(title string) []string {
	if title == "" {
		return nil
	}
	lower := strings.ToLower(title)
	matched := make(map[string]struct{})
	for _, entry := range domainKeywords {
		for _, kw := range entry.keywords {
			if keywordMatch(kw, lower) {
				matched[entry.name] = struct{}{}
				if parent, ok := domainParents[entry.name]; ok {
					matched[parent] = struct{}{}
				}
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matched))
	for tag := range matched {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// keywordMatch: los keywords cortos (≤4 chars) exigen límites de palabra para
// evitar falsos positivos ("eth" dentro de "whether", "ada" en "Canada").
func keywordMatch(keyword, textLower string) bool {
	if len(keyword) > 4 {
		return strings.Contains(textLower, keyword)
	}
	for start := 0; ; {
		idx := strings.Index(textLower[start:], keyword)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(keyword)
		beforeOK := idx == 0 || !isWordChar(rune(textLower[idx-1]))
		afterOK := end == len(textLower) || !isWordChar(rune(textLower[end]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
