package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人主表
// 结构化画像以JSON快照保存，常用筛选字段冗余为索引列
type Candidate struct {
	CandidateID string `gorm:"type:varchar(41);primaryKey"` // cand-{uuid}
	FirstName   string `gorm:"type:varchar(255)"`
	LastName    string `gorm:"type:varchar(255)"`
	Email       string `gorm:"type:varchar(255);index:idx_candidates_email"`
	Mobile      string `gorm:"type:varchar(50);index:idx_candidates_mobile"`
	City        string `gorm:"type:varchar(255)"`
	State       string `gorm:"type:varchar(255)"`
	PinCode     string `gorm:"type:varchar(10)"`

	// 归一化后的画像字段，取值落在主数据词表内
	Role           string `gorm:"type:varchar(100);index:idx_candidates_role"`
	Level          string `gorm:"type:varchar(50);index:idx_candidates_level"`
	PrimarySkill   string `gorm:"type:varchar(100);index:idx_candidates_primary_skill"`
	SecondarySkill string `gorm:"type:varchar(100)"`
	TertiarySkill  string `gorm:"type:varchar(100)"`
	Industry       string `gorm:"type:varchar(100)"`

	// LLM提取出的完整档案快照
	ProfileJSON datatypes.JSON `gorm:"type:json"`

	// 原始文件信息
	OriginalFilename string `gorm:"type:varchar(255)"`
	ResumePathOSS    string `gorm:"type:varchar(1024)"` // MinIO对象路径
	ParsedTextPath   string `gorm:"type:varchar(1024)"` // 解析文本对象路径
	RawFileMD5       string `gorm:"type:char(32);index:idx_candidates_raw_file_md5"`
	ParsedTextMD5    string `gorm:"type:char(32)"` // 删除候选人时用于清理文本去重记录

	// 处理状态与追踪
	ProcessingStatus string     `gorm:"type:varchar(50);default:'PENDING';index:idx_candidates_processing_status"`
	ParserVersion    string     `gorm:"type:varchar(50)"`
	ErrorMessage     string     `gorm:"type:text"`
	ProcessedAt      *time.Time `gorm:"type:datetime(6)"`

	CreatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CandidateEducation 候选人教育经历表
type CandidateEducation struct {
	EducationID    uint64 `gorm:"primaryKey;autoIncrement"`
	CandidateID    string `gorm:"type:varchar(41);not null;index:idx_ce_candidate_id"`
	Specialization string `gorm:"type:varchar(255)"`
	School         string `gorm:"type:varchar(255)"`
	University     string `gorm:"type:varchar(255)"`
	Degree         string `gorm:"type:varchar(100)"`
	Country        string `gorm:"type:varchar(100)"`
	StartDate      string `gorm:"type:varchar(10)"` // MM-YYYY
	EndDate        string `gorm:"type:varchar(10)"`
	Status         string `gorm:"type:varchar(20)"` // completed / in progress

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateEducation) TableName() string {
	return "candidate_educations"
}

// CandidateExperience 候选人工作经历表
type CandidateExperience struct {
	ExperienceID      uint64         `gorm:"primaryKey;autoIncrement"`
	CandidateID       string         `gorm:"type:varchar(41);not null;index:idx_cx_candidate_id"`
	Organisation      string         `gorm:"type:varchar(255)"`
	Designation       string         `gorm:"type:varchar(255)"`
	StartDate         string         `gorm:"type:varchar(10)"` // MM-YYYY
	EndDate           string         `gorm:"type:varchar(10)"` // 当前工作为空
	IsCurrent         bool           `gorm:"default:false"`
	ContributionsJSON datatypes.JSON `gorm:"type:json"` // STAR贡献列表

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidateExperience) TableName() string {
	return "candidate_experiences"
}

// City 标准城市主数据表，归一化时作为城市匹配的目标词表
type City struct {
	CityID uint64 `gorm:"primaryKey;autoIncrement"`
	Name   string `gorm:"type:varchar(255);not null;index:idx_cities_name"`
	State  string `gorm:"type:varchar(255);not null;index:idx_cities_state"`
}

func (City) TableName() string {
	return "cities"
}

// EmailLog 邮件分类记录表
type EmailLog struct {
	EmailLogID  uint64    `gorm:"primaryKey;autoIncrement"`
	Sender      string    `gorm:"type:varchar(255);not null"`
	Subject     string    `gorm:"type:varchar(512)"`
	Category    string    `gorm:"type:varchar(50);index:idx_email_logs_category"` // job_application / enquiry / spam / other
	Reason      string    `gorm:"type:text"`
	CandidateID *string   `gorm:"type:varchar(41);index:idx_email_logs_candidate_id"` // 附件被接收为简历时回填
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (EmailLog) TableName() string {
	return "email_logs"
}

// ExtractionAudit 提取审计表
// 每次结构化提取结束时写入一行，与档案落库共用同一事务
type ExtractionAudit struct {
	AuditID       uint64    `gorm:"primaryKey;autoIncrement"`
	CandidateID   string    `gorm:"type:varchar(41);not null;index:idx_ea_candidate_id"`
	ParserVersion string    `gorm:"type:varchar(50)"`
	ModelName     string    `gorm:"type:varchar(100)"`
	Status        string    `gorm:"type:varchar(50);not null"` // SUCCESS / FAILURE
	DurationMs    int64     `gorm:"default:0"`
	ErrorMessage  string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (ExtractionAudit) TableName() string {
	return "extraction_audits"
}

// StringToJSON 将字符串转换为datatypes.JSON
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// ToJSON 将任意可序列化值转换为datatypes.JSON
func ToJSON(v interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
