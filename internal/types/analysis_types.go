package types

// FileType 上传文档的类型
type FileType string

const (
	// FileTypePDF PDF文档
	FileTypePDF FileType = "pdf"
	// FileTypeDOCX Word文档
	FileTypeDOCX FileType = "docx"
	// FileTypeImage 图片文档（扫描件）
	FileTypeImage FileType = "image"
)

// ParseMeta 文档提取元数据
type ParseMeta struct {
	FileType            FileType `json:"filetype"`             // 文档类型
	HasColumns          bool     `json:"has_columns"`          // 是否检测到多栏排版
	HasTables           bool     `json:"has_tables"`           // 是否检测到表格排版
	ExtractabilityScore float64  `json:"extractability_score"` // 可提取性评分 [0,1]
	OCRUsed             bool     `json:"ocr_used"`             // 是否使用了OCR
}

// ParsedDocument 提取结果，每次上传创建一次，之后不可变
type ParsedDocument struct {
	Text string    `json:"text"`
	Meta ParseMeta `json:"meta"`
}

// 章节名称固定词表
const (
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionAwards         = "awards"
	SectionLanguages      = "languages"
	SectionPublications   = "publications"
	SectionReferences     = "references"
)

// CoreSections 任何输出中必须存在的四个核心章节
var CoreSections = []string{SectionSummary, SectionExperience, SectionEducation, SectionSkills}

// SectionMap 章节名到文本块的映射，顺序无关
type SectionMap map[string]string

// ExtractedSkill 从简历中提取的技能
type ExtractedSkill struct {
	Name          string  `json:"name"`           // 匹配到的表面形式
	CanonicalName string  `json:"canonical_name"` // 技能分类表中的规范名
	Confidence    float64 `json:"confidence"`     // 置信度 [0,1]
	Section       string  `json:"section"`        // 来源章节
	Context       string  `json:"context"`        // 匹配位置前后±50字符窗口
}

// ExtractedExperience 从简历中提取的工作经历条目
type ExtractedExperience struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"` // 可能为 "present"/"current"
	DurationMonths *int   `json:"duration_months"`    // 无法解析时为 null，不是0
	Description    string `json:"description"`
	Section        string `json:"section"`
}

// ExtractedEducation 从简历中提取的教育经历条目
type ExtractedEducation struct {
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	Field          string `json:"field,omitempty"`
	GraduationDate string `json:"graduation_date,omitempty"`
	GPA            string `json:"gpa,omitempty"`
	Section        string `json:"section"`
}

// ExtractedEntities 实体提取的聚合结果
type ExtractedEntities struct {
	Skills                []ExtractedSkill      `json:"skills"`
	Experience            []ExtractedExperience `json:"experience"`
	Education             []ExtractedEducation  `json:"education"`
	TotalExperienceMonths int                   `json:"total_experience_months"` // 仅累加已知时长的条目
	MostRecentTitle       string                `json:"most_recent_title,omitempty"`
}

// EducationLevel JD要求的学历层级
type EducationLevel string

const (
	EducationUnspecified EducationLevel = "unspecified"
	EducationHighSchool  EducationLevel = "high_school"
	EducationAssociate   EducationLevel = "associate"
	EducationBachelor    EducationLevel = "bachelor"
	EducationMaster      EducationLevel = "master"
	EducationPhD         EducationLevel = "phd"
)

// JDRequirement 从JD中解析出的单项技能要求
type JDRequirement struct {
	Skill      string  `json:"skill"`
	IsRequired bool    `json:"is_required"`
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
}

// JDRequirements JD解析的聚合结果
type JDRequirements struct {
	RequiredSkills  []JDRequirement `json:"required_skills"`
	PreferredSkills []JDRequirement `json:"preferred_skills"`
	ExperienceYears int             `json:"experience_years"` // 所有数值模式中的最小值，未找到为0
	EducationLevel  EducationLevel  `json:"education_level"`
	Title           string          `json:"title"`
	AllSkills       []string        `json:"all_skills"`
}

// Evidence 经过独立校验、可以引用的简历佐证
type Evidence struct {
	Skill      string  `json:"skill"`
	Section    string  `json:"section"`
	Quote      string  `json:"quote"`
	Similarity float64 `json:"similarity"`
}

// SkillMatch 单个JD技能与简历技能的匹配结果
type SkillMatch struct {
	JDSkill     string          `json:"jd_skill"`
	ResumeSkill *ExtractedSkill `json:"resume_skill"` // 未匹配到时为 nil
	Similarity  float64         `json:"similarity"`
	IsRequired  bool            `json:"is_required"`
	Evidence    *Evidence       `json:"evidence"` // 通过佐证门限校验时才存在
}

// MissingSkills 按要求层级划分的缺失技能
type MissingSkills struct {
	Required  []string `json:"required"`
	Preferred []string `json:"preferred"`
}

// Suggestion 针对简历的改进建议
type Suggestion struct {
	Before    string `json:"before"`
	After     string `json:"after"`
	Rationale string `json:"rationale"`
}

// MatchResults 技能匹配的完整结果
type MatchResults struct {
	RequiredMatches  []SkillMatch  `json:"required_matches"`
	PreferredMatches []SkillMatch  `json:"preferred_matches"`
	Missing          MissingSkills `json:"missing"`
	WeaklySupported  []string      `json:"weakly_supported"`
	Suggestions      []Suggestion  `json:"suggestions"`
	Evidence         []Evidence    `json:"evidence"`
}

// Score 四项评分，均为 [0,100] 整数
type Score struct {
	Overall    int `json:"overall"`
	Coverage   int `json:"coverage"`
	Experience int `json:"experience"`
	Education  int `json:"education"`
}

// ATSWarnings 合规检查输出，warnings与passes互为补充
type ATSWarnings struct {
	Warnings []string `json:"warnings"`
	Passes   []string `json:"passes"`
}

// AnalysisResult 一次完整分析的聚合输出
type AnalysisResult struct {
	AnalysisID   string             `json:"analysis_id"`
	Score        Score              `json:"score"`
	Matches      *MatchResults      `json:"matches"`
	Entities     *ExtractedEntities `json:"entities"`
	Requirements *JDRequirements    `json:"requirements"`
	Compliance   *ATSWarnings       `json:"compliance"`
}
