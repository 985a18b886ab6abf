package types

// UploadStatus 表示简历上传处理状态
type UploadStatus string

const (
	// StatusSuccess 提取并归一化成功
	StatusSuccess UploadStatus = "success"
	// StatusFailure 提取失败
	StatusFailure UploadStatus = "failure"
	// StatusCancelled 被去重或人工取消
	StatusCancelled UploadStatus = "cancelled"
	// StatusPending 已入库，等待处理
	StatusPending UploadStatus = "pending"
	// StatusProcessing 提取流程进行中
	StatusProcessing UploadStatus = "processing"
)

// EducationStatus 学历完成状态的取值
const (
	EducationCompleted  = "completed"
	EducationInProgress = "in progress"
)

// TeachingCandidate 教师候选人的结构化档案，由LLM从简历文本中提取
type TeachingCandidate struct {
	// 基本信息
	Prefix          *string `json:"prefix"` // 称谓，如 Mr./Ms./Dr.
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	DateOfBirth     *string `json:"date_of_birth"` // 格式 DD-MM-YYYY
	Gender          *string `json:"gender"`
	Email           *string `json:"email"`
	Mobile          *string `json:"mobile"` // 归一化为 +91-XXXXXXXXXX
	AlternateEmail  *string `json:"alternate_email"`
	AlternateMobile *string `json:"alternate_mobile"`

	// 地址信息
	Address *string `json:"address"`
	PinCode *string `json:"pin_code"` // 印度邮政编码，6位数字
	City    *string `json:"city"`
	State   *string `json:"state"`

	// 职业轨迹
	CareerStartDate *string      `json:"career_start_date"` // 格式 MM-YYYY
	Education       []Education  `json:"education"`
	Experiences     []Experience `json:"experiences"`

	// 画像字段，归一化后取值必须落在主数据词表内
	Industry       *string `json:"industry"`
	PrimarySkill   *string `json:"primary_skill"`
	SecondarySkill *string `json:"secondary_skill"`
	TertiarySkill  *string `json:"tertiary_skill"`
	Role           *string `json:"role"`  // 如 Teacher, Principal
	Level          *string `json:"level"` // 如 PRT, TGT, PGT
}

// Education 一段教育经历
type Education struct {
	Specialization *string `json:"specialization"`
	School         *string `json:"school"`
	University     *string `json:"university"`
	Degree         *string `json:"degree"`
	Country        *string `json:"country"`
	StartDate      *string `json:"start_date"` // 格式 MM-YYYY
	EndDate        *string `json:"end_date"`   // 在读时为null
	Status         *string `json:"status"`     // completed / in progress
}

// Experience 一段工作经历
type Experience struct {
	Organisation    *string        `json:"organisation"`
	Designation     *string        `json:"designation"`
	StartDate       *string        `json:"start_date"` // 格式 MM-YYYY
	EndDate         *string        `json:"end_date"`   // 当前工作为null
	Contributions   []Contribution `json:"contributions"`
	CurrentJobOrNot bool           `json:"current_job_or_not"`
}

// Contribution 按STAR法则组织的一项工作贡献
type Contribution struct {
	Situation     string `json:"situation"`
	Task          string `json:"task"`
	Action        string `json:"action"`
	Result        string `json:"result"`
	SkillsApplied string `json:"skills_applied"` // 该贡献运用到的技能，逗号分隔
}

// ResumeUploadResponse 单个简历上传的API响应
type ResumeUploadResponse struct {
	Status    UploadStatus       `json:"status"`
	ID        string             `json:"id,omitempty"`
	Error     string             `json:"error,omitempty"`
	ResumeURL string             `json:"resume_url,omitempty"`
	Candidate *TeachingCandidate `json:"candidate,omitempty"`
}

// ResumeSearchResult 语义搜索命中的一条结果
type ResumeSearchResult struct {
	ID         string  `json:"id"`
	Confidence float32 `json:"confidence"`
}

// ResumeSearchRequest 语义搜索请求
type ResumeSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// Threshold 过滤低于该置信度的结果，未传时使用默认阈值，显式传0表示不过滤
	Threshold *float32 `json:"threshold,omitempty"`
	// 可选的结构化过滤条件，取值需落在主数据词表内
	Role  string `json:"role,omitempty"`
	Level string `json:"level,omitempty"`
	Skill string `json:"skill,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// BatchUploadResponse ZIP批量上传的API响应
type BatchUploadResponse struct {
	Total     int                    `json:"total"`
	Accepted  int                    `json:"accepted"`
	Rejected  int                    `json:"rejected"`
	Responses []ResumeUploadResponse `json:"responses"`
}

// BatchDeleteRequest 批量删除请求
type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BatchDeleteResponse 批量删除响应
type BatchDeleteResponse struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"` // id -> 失败原因
}

// CandidatePatch PATCH接口允许修改的画像字段，nil表示不修改
type CandidatePatch struct {
	Role           *string `json:"role,omitempty"`
	Level          *string `json:"level,omitempty"`
	PrimarySkill   *string `json:"primary_skill,omitempty"`
	SecondarySkill *string `json:"secondary_skill,omitempty"`
	TertiarySkill  *string `json:"tertiary_skill,omitempty"`
	Email          *string `json:"email,omitempty"`
	Mobile         *string `json:"mobile,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	PinCode        *string `json:"pin_code,omitempty"`
}
