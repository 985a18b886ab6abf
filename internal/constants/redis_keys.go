package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"
	// SearchModulePrefix 搜索模块
	SearchModulePrefix = "search"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityCache 缓存实体
	EntityCache = "cache"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityTextDedupSet 解析文本去重集合实体
	EntityTextDedupSet = "text_dedup_set"
	// EntityMD5ToID MD5到候选人ID的映射实体
	EntityMD5ToID = "md5_to_id"
	// EntityTextMD5ToID 文本MD5到候选人ID的映射实体
	EntityTextMD5ToID = "text_md5_to_id"

	// KeyFileMD5Set 文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyFileMD5ToCandidateID MD5到候选人ID的映射 (STRING)
	// 格式: app:file:md5_to_id:{md5}
	KeyFileMD5ToCandidateID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToID + ":%s"

	// KeyTextMD5Set 解析文本MD5集合，同一份内容换个文件名也能被识别 (SET)
	// 格式: app:file:text_dedup_set
	KeyTextMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityTextDedupSet

	// KeyTextMD5ToCandidateID 文本MD5到候选人ID的映射 (STRING)
	// 格式: app:file:text_md5_to_id:{md5}
	KeyTextMD5ToCandidateID = AppPrefix + ":" + FileModulePrefix + ":" + EntityTextMD5ToID + ":%s"

	// KeySearchCache 语义搜索结果缓存 (STRING, JSON)
	// 格式: app:search:cache:{queryHash}
	KeySearchCache = AppPrefix + ":" + SearchModulePrefix + ":" + EntityCache + ":%s"

	// KeySearchLock 搜索查询级别的分布式锁，防止同一查询并发打到嵌入服务 (STRING)
	// 格式: app:search:lock:{queryHash}
	KeySearchLock = AppPrefix + ":" + SearchModulePrefix + ":" + EntityLock + ":%s"
)
