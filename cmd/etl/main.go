package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/normalizer"
	"github.com/Apsidata-Solutions/sync-resume/internal/parser"
	"github.com/Apsidata-Solutions/sync-resume/internal/processor"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"

	"github.com/spf13/pflag"
)

// 批量归一化修复工具
// 对存量候选人重新执行字段归一化，可选地重新嵌入并回写向量
// 处理结束后输出各字段的识别率报告

const (
	concurrency = 5
	pageSize    = 200
)

// repairColumns 批量回写时覆盖的列，与归一化触达的字段一致
var repairColumns = []string{
	"role", "level", "primary_skill", "secondary_skill", "tertiary_skill",
	"city", "state", "email", "mobile", "pin_code", "profile_json",
}

type repairStats struct {
	mu sync.Mutex

	total        int
	updated      int
	failed       int
	roleMatched  int
	levelMatched int
	skillMatched int
	cityMatched  int
	mobileValid  int
	emailValid   int
}

func (s *repairStats) record(c *types.TeachingCandidate, updated bool, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if failed {
		s.failed++
		return
	}
	if updated {
		s.updated++
	}
	if c.Role != nil && *c.Role != "" {
		s.roleMatched++
	}
	if c.Level != nil && *c.Level != "" {
		s.levelMatched++
	}
	if c.PrimarySkill != nil && *c.PrimarySkill != "" {
		s.skillMatched++
	}
	if c.City != nil && *c.City != "" {
		s.cityMatched++
	}
	if c.Mobile != nil && normalizer.IsValidMobile(*c.Mobile) {
		s.mobileValid++
	}
	if c.Email != nil && normalizer.IsValidEmail(*c.Email) {
		s.emailValid++
	}
}

func (s *repairStats) addUpdated(n int) {
	s.mu.Lock()
	s.updated += n
	s.mu.Unlock()
}

func (s *repairStats) report() {
	s.mu.Lock()
	defer s.mu.Unlock()

	processed := s.total - s.failed
	rate := func(n int) string {
		if processed == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", float64(n)*100/float64(processed))
	}

	log.Printf("==== 归一化修复报告 ====")
	log.Printf("总数: %d, 更新: %d, 失败: %d", s.total, s.updated, s.failed)
	log.Printf("role识别率:   %s", rate(s.roleMatched))
	log.Printf("level识别率:  %s", rate(s.levelMatched))
	log.Printf("skill识别率:  %s", rate(s.skillMatched))
	log.Printf("city识别率:   %s", rate(s.cityMatched))
	log.Printf("mobile有效率: %s", rate(s.mobileValid))
	log.Printf("email有效率:  %s", rate(s.emailValid))
}

func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径")
	status := pflag.String("status", "SUCCESS", "要处理的候选人状态")
	dryRun := pflag.Bool("dry-run", false, "只统计识别率，不回写数据库")
	reEmbed := pflag.Bool("re-embed", false, "重新嵌入画像文本并回写向量")
	pflag.Parse()

	logFile, err := os.Create("etl_repair.log")
	if err != nil {
		log.Fatalf("创建日志文件失败: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	if storageManager.MySQL == nil {
		log.Fatalf("MySQL未就绪，无法执行修复")
	}

	var embedder *parser.OpenAIEmbedder
	if *reEmbed {
		if storageManager.Qdrant == nil {
			log.Fatalf("Qdrant未就绪，无法重新嵌入")
		}
		embedder, err = parser.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.LLM.Embedding)
		if err != nil {
			log.Fatalf("初始化嵌入器失败: %v", err)
		}
	}

	// 城市主数据优先从库里加载
	var normOpts []normalizer.Option
	if cities, err := storageManager.MySQL.LoadCities(ctx); err != nil {
		log.Printf("加载城市主数据失败，使用内置词表: %v", err)
	} else if len(cities) > 0 {
		entries := make([]normalizer.City, 0, len(cities))
		for _, c := range cities {
			entries = append(entries, normalizer.City{Name: c.Name, State: c.State})
		}
		normOpts = append(normOpts, normalizer.WithCities(entries))
	}
	norm := normalizer.New(normOpts...)

	stats := &repairStats{}
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	offset := 0
	for {
		candidates, err := storageManager.MySQL.ListCandidatesByStatus(ctx, *status, offset, pageSize)
		if err != nil {
			log.Fatalf("查询候选人列表失败: %v", err)
		}
		if len(candidates) == 0 {
			break
		}
		log.Printf("处理批次 offset=%d, 共 %d 个候选人", offset, len(candidates))

		var pendingMu sync.Mutex
		pending := make([]models.Candidate, 0, len(candidates))

		for i := range candidates {
			candidate := candidates[i]
			wg.Add(1)
			semaphore <- struct{}{}

			go func() {
				defer func() {
					<-semaphore
					wg.Done()
				}()

				repaired, err := repairCandidate(ctx, storageManager, norm, embedder, stats, &candidate, *dryRun)
				if err != nil {
					log.Printf("修复候选人 %s 失败: %v", candidate.CandidateID, err)
					return
				}
				if repaired != nil {
					pendingMu.Lock()
					pending = append(pending, *repaired)
					pendingMu.Unlock()
				}
			}()
		}
		wg.Wait()

		// 整批一次回写，候选人ID冲突时只覆盖归一化触达的列
		if len(pending) > 0 {
			if err := storageManager.MySQL.BatchInsertCandidates(ctx, pending, repairColumns); err != nil {
				log.Fatalf("批次回写失败: %v", err)
			}
			stats.addUpdated(len(pending))
		}

		offset += len(candidates)
		// 批次之间稍作停顿，避免重嵌入时打满嵌入服务
		if *reEmbed {
			time.Sleep(time.Second)
		}
	}

	stats.report()
	log.Println("归一化修复完成")
}

// repairCandidate 对单个候选人重新执行归一化
// 有字段变化时返回待回写的候选人行，由调用方整批落库
func repairCandidate(ctx context.Context, storageManager *storage.Storage, norm *normalizer.Normalizer,
	embedder *parser.OpenAIEmbedder, stats *repairStats, candidate *models.Candidate, dryRun bool) (*models.Candidate, error) {

	if len(candidate.ProfileJSON) == 0 {
		stats.record(&types.TeachingCandidate{}, false, true)
		return nil, fmt.Errorf("候选人 %s 没有画像快照", candidate.CandidateID)
	}

	var profile types.TeachingCandidate
	if err := json.Unmarshal(candidate.ProfileJSON, &profile); err != nil {
		stats.record(&types.TeachingCandidate{}, false, true)
		return nil, fmt.Errorf("解析画像快照失败: %w", err)
	}

	norm.NormalizeCandidate(&profile)

	updates := buildRepairUpdates(candidate, &profile)
	if dryRun || len(updates) == 0 {
		stats.record(&profile, false, false)
		return nil, nil
	}

	profileJSON, err := json.Marshal(&profile)
	if err != nil {
		stats.record(&profile, false, true)
		return nil, fmt.Errorf("序列化画像快照失败: %w", err)
	}
	applyRepair(candidate, &profile)
	candidate.ProfileJSON = models.StringToJSON(string(profileJSON))

	if embedder != nil {
		if err := reEmbedCandidate(ctx, storageManager, embedder, candidate.CandidateID, &profile); err != nil {
			// 向量回写失败不影响本行的归一化结果
			log.Printf("候选人 %s 向量回写失败: %v", candidate.CandidateID, err)
		}
	}

	stats.record(&profile, false, false)
	return candidate, nil
}

// applyRepair 把归一化后的非空字段覆盖到候选人行上
// 画像中为空的字段保留行里的原值，避免批量回写时抹掉已有数据
func applyRepair(candidate *models.Candidate, profile *types.TeachingCandidate) {
	set := func(dst *string, val *string) {
		if val != nil && *val != "" {
			*dst = *val
		}
	}

	set(&candidate.Role, profile.Role)
	set(&candidate.Level, profile.Level)
	set(&candidate.PrimarySkill, profile.PrimarySkill)
	set(&candidate.SecondarySkill, profile.SecondarySkill)
	set(&candidate.TertiarySkill, profile.TertiarySkill)
	set(&candidate.City, profile.City)
	set(&candidate.State, profile.State)
	set(&candidate.Email, profile.Email)
	set(&candidate.Mobile, profile.Mobile)
	set(&candidate.PinCode, profile.PinCode)
}

// buildRepairUpdates 对比归一化前后的字段，只回写发生变化的列
func buildRepairUpdates(candidate *models.Candidate, profile *types.TeachingCandidate) map[string]interface{} {
	updates := make(map[string]interface{})

	setIfChanged := func(column, old string, val *string) {
		if val != nil && *val != "" && *val != old {
			updates[column] = *val
		}
	}

	setIfChanged("role", candidate.Role, profile.Role)
	setIfChanged("level", candidate.Level, profile.Level)
	setIfChanged("primary_skill", candidate.PrimarySkill, profile.PrimarySkill)
	setIfChanged("secondary_skill", candidate.SecondarySkill, profile.SecondarySkill)
	setIfChanged("tertiary_skill", candidate.TertiarySkill, profile.TertiarySkill)
	setIfChanged("city", candidate.City, profile.City)
	setIfChanged("state", candidate.State, profile.State)
	setIfChanged("email", candidate.Email, profile.Email)
	setIfChanged("mobile", candidate.Mobile, profile.Mobile)
	setIfChanged("pin_code", candidate.PinCode, profile.PinCode)

	return updates
}

// reEmbedCandidate 重新嵌入画像文本并覆盖Qdrant中的点
func reEmbedCandidate(ctx context.Context, storageManager *storage.Storage, embedder *parser.OpenAIEmbedder,
	candidateID string, profile *types.TeachingCandidate) error {

	profileText := processor.BuildProfileText(profile)
	vectors, err := embedder.EmbedStrings(ctx, []string{profileText})
	if err != nil {
		return fmt.Errorf("生成嵌入向量失败: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("嵌入结果数量异常: 期望1个，得到%d个", len(vectors))
	}

	_, err = storageManager.Qdrant.UpsertCandidateVector(ctx, candidateID, vectors[0],
		processor.BuildVectorPayload(candidateID, profile))
	if err != nil {
		return fmt.Errorf("向量写入Qdrant失败: %w", err)
	}
	return nil
}
