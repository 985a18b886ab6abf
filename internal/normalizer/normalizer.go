package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Apsidata-Solutions/sync-resume/internal/logger"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

// Strategy 匹配策略
type Strategy string

const (
	// StrategyDirect 直接字符串匹配
	StrategyDirect Strategy = "direct"
	// StrategyRegex 正则匹配
	StrategyRegex Strategy = "regex"
	// StrategyFuzzy 模糊匹配（编辑距离）
	StrategyFuzzy Strategy = "fuzzy"
	// StrategyProgressive 按成本递增依次尝试以上策略
	StrategyProgressive Strategy = "progressive"
)

// 模糊匹配的最低相似度阈值 (0-100)
const (
	fuzzyThreshold     = 75
	cityFuzzyThreshold = 70
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	mobileRe     = regexp.MustCompile(`^\+\d{1,3}-\d{10}$`)
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._%+-]*@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	dateRe       = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	stripPhoneRe = regexp.MustCompile(`[\s\-\(\)\+]`)
)

// City 标准城市条目
type City struct {
	Name  string
	State string
}

// Normalizer 将LLM提取出的自由文本字段归一化到主数据词表
type Normalizer struct {
	roles  []string
	levels []string
	skills []string
	cities []City
}

// Option 配置Normalizer的函数选项
type Option func(*Normalizer)

// WithCities 注入标准城市主数据
func WithCities(cities []City) Option {
	return func(n *Normalizer) {
		n.cities = cities
	}
}

// New 创建归一化器，默认使用内置主数据词表
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		roles:  Roles,
		levels: Levels,
		skills: Skills,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// preprocess 清洗文本：小写化、去除特殊字符、压缩空白
func preprocess(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = nonWordRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// directMatch 对目标列表做精确匹配和包含匹配
func directMatch(input string, targets []string) string {
	if input == "" {
		return ""
	}
	for _, item := range targets {
		if strings.ToLower(item) == input {
			return item
		}
	}
	for _, item := range targets {
		if strings.Contains(input, strings.ToLower(item)) {
			return item
		}
	}
	return ""
}

// regexMatch 按声明顺序依次尝试正则规则
func regexMatch(input string, rules []patternRule) string {
	if input == "" {
		return ""
	}
	for _, rule := range rules {
		if rule.re.MatchString(input) {
			return rule.result
		}
	}
	return ""
}

// similarityScore 基于编辑距离计算0-100的相似度分数
func similarityScore(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}
	return 100 - (dist*100)/maxLen
}

// fuzzyMatch 在目标列表中找到编辑距离相似度最高的项
func fuzzyMatch(input string, targets []string, threshold int) string {
	if len(input) < 3 {
		return ""
	}
	best := ""
	bestScore := 0
	for _, item := range targets {
		score := similarityScore(input, strings.ToLower(item))
		if score > bestScore {
			bestScore = score
			best = item
		}
	}
	if bestScore >= threshold {
		return best
	}
	return ""
}

// MatchRole 将输入文本匹配到标准岗位，无匹配时返回空串
func (n *Normalizer) MatchRole(input string, strategy Strategy) string {
	pre := preprocess(input)
	if pre == "" {
		return ""
	}
	switch strategy {
	case StrategyDirect:
		return directMatch(pre, n.roles)
	case StrategyRegex:
		return regexMatch(pre, rolePatterns)
	case StrategyFuzzy:
		return fuzzyMatch(pre, n.roles, fuzzyThreshold)
	case StrategyProgressive:
		if r := directMatch(pre, n.roles); r != "" {
			return r
		}
		if r := regexMatch(pre, rolePatterns); r != "" {
			return r
		}
		return fuzzyMatch(pre, n.roles, fuzzyThreshold)
	default:
		logger.Warn().Str("strategy", string(strategy)).Msg("未知的匹配策略，回退到progressive")
		return n.MatchRole(input, StrategyProgressive)
	}
}

// MatchLevel 将输入文本匹配到标准教学层级
// 层级通常以缩写形式出现在职位名中，正则匹配基本足够
func (n *Normalizer) MatchLevel(input string, strategy Strategy) string {
	pre := preprocess(input)
	if pre == "" {
		return ""
	}
	if r := regexMatch(pre, levelPatterns); r != "" {
		return r
	}
	if strategy == StrategyFuzzy || strategy == StrategyProgressive {
		return fuzzyMatch(pre, n.levels, fuzzyThreshold)
	}
	return ""
}

// MatchSkill 将输入文本匹配到标准技能
func (n *Normalizer) MatchSkill(input string, strategy Strategy) string {
	pre := preprocess(input)
	if pre == "" {
		return ""
	}
	switch strategy {
	case StrategyDirect:
		return directMatch(pre, n.skills)
	case StrategyRegex:
		return regexMatch(pre, skillPatterns)
	case StrategyFuzzy:
		return fuzzyMatch(pre, n.skills, fuzzyThreshold)
	case StrategyProgressive:
		if r := directMatch(pre, n.skills); r != "" {
			return r
		}
		if r := regexMatch(pre, skillPatterns); r != "" {
			return r
		}
		return fuzzyMatch(pre, n.skills, fuzzyThreshold)
	default:
		logger.Warn().Str("strategy", string(strategy)).Msg("未知的匹配策略，回退到progressive")
		return n.MatchSkill(input, StrategyProgressive)
	}
}

// MatchCity 将输入文本匹配到标准城市
// 提供state时只在该邦内匹配，缩小模糊匹配的搜索范围
func (n *Normalizer) MatchCity(city, state string) string {
	pre := preprocess(city)
	if len(pre) < 3 {
		return ""
	}
	var targets []string
	if state != "" {
		for _, c := range n.cities {
			if c.State == state {
				targets = append(targets, c.Name)
			}
		}
	}
	if len(targets) == 0 {
		for _, c := range n.cities {
			targets = append(targets, c.Name)
		}
	}
	if len(targets) == 0 {
		return ""
	}
	return fuzzyMatch(pre, targets, cityFuzzyThreshold)
}

// SanitizeNumber 将手机号归一化为 +91-XXXXXXXXXX 格式
// 无法确定格式时原样返回
func (n *Normalizer) SanitizeNumber(number string) string {
	if number == "" {
		return ""
	}
	digits := stripPhoneRe.ReplaceAllString(number, "")
	switch {
	case len(digits) == 10 && strings.ContainsAny(digits[:1], "6789"):
		return "+91-" + digits
	case len(digits) == 12 && strings.HasPrefix(digits, "91") && strings.ContainsAny(digits[2:3], "6789"):
		return "+91-" + digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0") && strings.ContainsAny(digits[1:2], "6789"):
		return "+91-" + digits[1:]
	default:
		logger.Warn().Str("number", number).Msg("无法归一化的手机号")
		return number
	}
}

// SanitizeEmail 清洗邮箱地址
// 小写化、去除Gmail本地部分的点号和加号后缀、修正常见域名拼写错误
func (n *Normalizer) SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	if !IsValidEmail(email) {
		logger.Warn().Str("email", email).Msg("邮箱格式无效")
		return email
	}
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if domain == "gmail.com" {
		local = strings.ReplaceAll(local, ".", "")
	}
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	if fixed, ok := domainFixes[domain]; ok {
		domain = fixed
	}
	if strings.HasSuffix(domain, ".comm") {
		domain = domain[:len(domain)-1]
	}
	return local + "@" + domain
}

// IsValidMobile 校验手机号是否符合 +[国家码]-[10位数字] 格式
func IsValidMobile(num string) bool {
	return mobileRe.MatchString(num)
}

// IsValidEmail 校验邮箱格式，并排除常见拼写错误的域名
func IsValidEmail(email string) bool {
	if !emailRe.MatchString(email) {
		return false
	}
	if strings.Contains(email, "..") {
		return false
	}
	parts := strings.Split(email, ".")
	tld := parts[len(parts)-1]
	if len(tld) < 2 || len(tld) > 63 {
		return false
	}
	at := strings.Index(email, "@")
	domain := strings.ToLower(email[at+1:])
	for _, typo := range []string{"gmial", "yahho", "outlok", "hotnail"} {
		if strings.Contains(domain, typo) {
			return false
		}
	}
	return true
}

// IsValidPin 校验印度邮政编码是否为6位数字
func IsValidPin(pin string) bool {
	pin = strings.TrimSpace(pin)
	if len(pin) != 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValidDate 校验日期是否符合 DD-MM-YYYY 格式且范围合法
func IsValidDate(date string) bool {
	date = strings.TrimSpace(date)
	if !dateRe.MatchString(date) {
		return false
	}
	var day, month, year int
	if _, err := fmt.Sscanf(date, "%02d-%02d-%04d", &day, &month, &year); err != nil {
		return false
	}
	return day >= 1 && day <= 31 && month >= 1 && month <= 12 && year >= 1000 && year <= 9999
}

// NormalizeCandidate 对提取出的候选人档案做全量归一化
// 画像字段映射到主数据词表，联系方式清洗为标准格式
func (n *Normalizer) NormalizeCandidate(c *types.TeachingCandidate) {
	if c == nil {
		return
	}

	if c.Mobile != nil {
		v := n.SanitizeNumber(*c.Mobile)
		c.Mobile = strPtr(v)
	}
	if c.AlternateMobile != nil {
		v := n.SanitizeNumber(*c.AlternateMobile)
		c.AlternateMobile = strPtr(v)
	}
	if c.Email != nil {
		v := n.SanitizeEmail(*c.Email)
		c.Email = strPtr(v)
	}
	if c.AlternateEmail != nil {
		v := n.SanitizeEmail(*c.AlternateEmail)
		c.AlternateEmail = strPtr(v)
	}

	if c.Role != nil {
		if v := n.MatchRole(*c.Role, StrategyProgressive); v != "" {
			c.Role = &v
		}
	}
	if c.Level != nil {
		if v := n.MatchLevel(*c.Level, StrategyProgressive); v != "" {
			c.Level = &v
		}
	}
	for _, sk := range []**string{&c.PrimarySkill, &c.SecondarySkill, &c.TertiarySkill} {
		if *sk != nil {
			if v := n.MatchSkill(**sk, StrategyProgressive); v != "" {
				*sk = &v
			}
		}
	}

	if len(n.cities) > 0 && c.City != nil {
		state := ""
		if c.State != nil {
			state = *c.State
		}
		if v := n.MatchCity(*c.City, state); v != "" {
			c.City = &v
		}
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
