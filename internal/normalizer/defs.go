package normalizer

import "regexp"

// 主数据词表。归一化后的画像字段取值必须落在这些列表内。

// Roles 标准岗位列表
var Roles = []string{
	"Teacher", "Mother Teacher", "Assistant Teacher",
	"Academic Coordinator", "Head of Department", "Vice Principal", "Headmistress",
	"Principal", "Director", "Events Coordinator", "School Counselor",
	"Admissions Counselor", "School Nurse", "School Doctor", "Sport Coach",
	"Librarian", "Lab Assistant", "Lab Technician", "Front Desk Executive",
	"Clerk", "Office Assistant", "HR Executive", "Finance Executive",
	"Facilities Manager", "Admin Officer", "Marketing Executive", "Content Writer",
	"Graphic Designer", "IT Support Staff", "System Admin", "Software Developer",
	"Analyst", "Canteen Staff", "Warden", "Groundsman", "Guard", "Peon",
	"Bus Driver", "Housekeeping Staff", "Maintenance Staff", "Others",
}

// Levels 标准教学层级列表
var Levels = []string{
	"Day Care", "Pre-Primary", "PRT", "TGT", "PGT", "NA", "Other",
}

// Skills 标准技能/学科列表
var Skills = []string{
	// 语言类
	"English", "Hindi", "Sanskrit", "French", "Spanish", "Japanese", "German",
	// 核心学科
	"Mathematics", "Science", "Physics", "Chemistry", "Biology",
	"Environmental Science", "Social Science", "History", "Geography",
	"Political Science", "Economics", "Sociology", "Psychology", "Civics",
	"Philosophy", "Commerce", "Accountancy", "Business Studies",
	"Home Science", "Family Studies", "Legal Studies", "Library Science",
	"Computer Science",
	// 艺术与表演
	"Vocal Music Classical", "Instrumental Music Classical",
	"Vocal Music Western", "Instrumental Music Western", "Graphics",
	"Photography", "Ceramics", "Woodcraft", "Sculptury", "Dance (Classical)",
	"Dance (Western)", "Arts", "Theatre", "Drama", "Robotics", "Fashion",
	"Film Making", "Animation", "Debate & Public Speaking", "Creative Writing", "Quiz",
	// 体育类
	"General Sport", "Athletics", "Yoga", "Cricket", "Badminton", "Tennis",
	"Basketball", "Football", "Hockey", "Equestrian", "Squash", "Chess",
	"Volleyball", "Swimming", "Golf", "Table Tennis", "Gymnastics",
	"Martial Arts", "Shooting", "Skating", "Boxing",
	// 技术类
	"Artificial Intelligence", "Web Development", "Database Management",
	"Network Administration", "System Administration", "IT Support",
	"Educational Technology Integration", "Learning Management Systems",
	"Digital Content Creation", "Data Analysis", "Data Science", "Cybersecurity",
	"Video Editing", "Graphic Design", "MS Office Suite",
	// 行政类
	"School Administration", "Office Management", "Event Management",
	"Facilities Management", "Inventory Management", "Front Office Management",
	"Communication Management", "Finance", "Accounts Management",
	"Human Resources", "Marketing", "Operations Management",
	"Transport Operations Management", "Hostel Management", "Canteen Management",
	"Security Management", "Housekeeping Management", "Maintenance Management",
	"Laboratory Management", "Health Care & Well Being",
}

// patternRule 一条正则到标准值的映射规则
// 规则按声明顺序匹配，靠前的规则优先级更高
type patternRule struct {
	re     *regexp.Regexp
	result string
}

func mustRule(pattern, result string) patternRule {
	return patternRule{re: regexp.MustCompile("(?i)" + pattern), result: result}
}

// rolePatterns 岗位标准化规则
var rolePatterns = []patternRule{
	// 教学岗位
	mustRule(`\b(teacher|faculty|educator|trainer|instructor|tutor)\b`, "Teacher"),
	mustRule(`\bmother\s*teacher\b`, "Mother Teacher"),
	mustRule(`\b(assistant|support|co|junior)\s*teacher\b`, "Assistant Teacher"),

	// 管理岗位
	mustRule(`\b(academic|curriculum)\s*(coordinator|cord|cordinator)\b`, "Academic Coordinator"),
	mustRule(`\b(hod|head|head\s*of\s*department)\b`, "Head of Department"),
	mustRule(`\bvice\s*principal\b`, "Vice Principal"),
	mustRule(`\bheadmistress\b`, "Headmistress"),
	mustRule(`\bprincipal\b`, "Principal"),
	mustRule(`\bdirector\b`, "Director"),
	mustRule(`\bevent\s*(coordinator|manager)\b`, "Events Coordinator"),
	mustRule(`\b(school|educational)\s*counselo?r\b`, "School Counselor"),
	mustRule(`\badmission\s*(counselo?r|manager|coordinator|officer)\b`, "Admissions Counselor"),
	mustRule(`\b(school|staff)\s*nurse\b`, "School Nurse"),
	mustRule(`\b(school|staff)\s*doctor\b`, "School Doctor"),
	mustRule(`\b(sport|game|athletic)\s*(coach|trainer)\b`, "Sport Coach"),
	mustRule(`\blibrarian\b`, "Librarian"),
	mustRule(`\blab\s*(assistant|technician|incharge)\b`, "Lab Assistant"),

	// 支持岗位
	mustRule(`\bfront\s*(desk|office)\b`, "Front Desk Executive"),
	mustRule(`\b(clerk|office\s*assistant)\b`, "Clerk"),
	mustRule(`\bhr\s*(executive|manager|associate)\b`, "HR Executive"),
	mustRule(`\b(finance|account|accountant)\s*(executive|manager)\b`, "Finance Executive"),
	mustRule(`\bfacilities\s*manager\b`, "Facilities Manager"),
	mustRule(`\badmin(\s*officer)?\b`, "Admin Officer"),
	mustRule(`\bmarketing\s*(executive|manager)\b`, "Marketing Executive"),
	mustRule(`\bcontent\s*writer\b`, "Content Writer"),
	mustRule(`\bgraphic\s*designer\b`, "Graphic Designer"),
	mustRule(`\bit\s*support\b`, "IT Support Staff"),
	mustRule(`\bsystem\s*admin\b`, "System Admin"),
	mustRule(`\bsoftware\s*developer\b`, "Software Developer"),
	mustRule(`\banalyst\b`, "Analyst"),

	// 后勤岗位
	mustRule(`\bcanteen\s*staff\b`, "Canteen Staff"),
	mustRule(`\bwarden\b`, "Warden"),
	mustRule(`\bgroundsman\b`, "Groundsman"),
	mustRule(`\bguard\b`, "Guard"),
	mustRule(`\bpeon\b`, "Peon"),
	mustRule(`\bdriver\b`, "Bus Driver"),
	mustRule(`\bhousekeeping\b`, "Housekeeping Staff"),
	mustRule(`\bmaintenance\b`, "Maintenance Staff"),
}

// levelPatterns 教学层级标准化规则
var levelPatterns = []patternRule{
	mustRule(`\bday\s*care\b`, "Day Care"),
	mustRule(`\b(pre\s*primary|nursery|kindergarten|kg|pre\s*school|montessori|playgroup)\b`, "Pre-Primary"),
	mustRule(`\b(prt|primary)\b`, "PRT"),
	mustRule(`\btgt\b`, "TGT"),
	mustRule(`\bpgt\b`, "PGT"),
}

// skillPatterns 技能标准化规则
var skillPatterns = []patternRule{
	// 语言类
	mustRule(`\benglish\b`, "English"),
	mustRule(`\bhindi\b`, "Hindi"),
	mustRule(`\bsanskrit\b`, "Sanskrit"),
	mustRule(`\bfrench\b`, "French"),
	mustRule(`\bspanish\b`, "Spanish"),
	mustRule(`\bjap(a|e)nese\b`, "Japanese"),
	mustRule(`\bgerman\b`, "German"),

	// 理科学科
	mustRule(`\bmath(ematics|s)?\b`, "Mathematics"),
	mustRule(`\b(general\s*)?science\b`, "Science"),
	mustRule(`\bphysics\b`, "Physics"),
	mustRule(`\bchemistry\b`, "Chemistry"),
	mustRule(`\bbiology\b`, "Biology"),
	mustRule(`\b(environmental|evs)\s*(science|studies)\b`, "Environmental Science"),
	mustRule(`\b(social\s*science|sst)\b`, "Social Science"),
	mustRule(`\bhistory\b`, "History"),
	mustRule(`\bgeography\b`, "Geography"),
	mustRule(`\bpolitical\s*science\b`, "Political Science"),
	mustRule(`\beconomics\b`, "Economics"),
	mustRule(`\bsociology\b`, "Sociology"),
	mustRule(`\bpsychology\b`, "Psychology"),
	mustRule(`\bcivics\b`, "Civics"),
	mustRule(`\bphilosophy\b`, "Philosophy"),
	mustRule(`\bcommerce\b`, "Commerce"),
	mustRule(`\baccountancy\b`, "Accountancy"),
	mustRule(`\bbusiness\s*studies\b`, "Business Studies"),
	mustRule(`\bhome\s*science\b`, "Home Science"),
	mustRule(`\blegal\s*studies\b`, "Legal Studies"),
	mustRule(`\blibrary\s*science\b`, "Library Science"),
	mustRule(`\bcomputer\s*(science)?\b`, "Computer Science"),

	// 艺术与表演
	mustRule(`\b(vocal|classical)\s*music\b`, "Vocal Music Classical"),
	mustRule(`\binstrumental\s*(music)?\s*classical\b`, "Instrumental Music Classical"),
	mustRule(`\bwestern\s*music\b`, "Vocal Music Western"),
	mustRule(`\b(piano|guitar)\s*teacher\b`, "Instrumental Music Western"),
	mustRule(`\bgraphics\b`, "Graphics"),
	mustRule(`\bphotography\b`, "Photography"),
	mustRule(`\bceramics\b`, "Ceramics"),
	mustRule(`\bwoodcraft\b`, "Woodcraft"),
	mustRule(`\bsculptur(e|y)\b`, "Sculptury"),
	mustRule(`\b(classical|indian)\s*dance\b`, "Dance (Classical)"),
	mustRule(`\bwestern\s*dance\b`, "Dance (Western)"),
	mustRule(`\b(art|fine\s*art|drawing|painting)\b`, "Arts"),
	mustRule(`\b(theatre|drama)\b`, "Theatre"),
	mustRule(`\brobotics\b`, "Robotics"),
	mustRule(`\bfashion\b`, "Fashion"),
	mustRule(`\bfilm\s*making\b`, "Film Making"),
	mustRule(`\banimation\b`, "Animation"),
	mustRule(`\bdebate\b`, "Debate & Public Speaking"),
	mustRule(`\bcreative\s*writing\b`, "Creative Writing"),
	mustRule(`\bquiz\b`, "Quiz"),

	// 体育类
	mustRule(`\b(physical\s*education|sports?\s*teacher|pt|ped)\b`, "General Sport"),
	mustRule(`\bathletics\b`, "Athletics"),
	mustRule(`\byoga\b`, "Yoga"),
	mustRule(`\bcricket\b`, "Cricket"),
	mustRule(`\bbadminton\b`, "Badminton"),
	mustRule(`\btennis\b`, "Tennis"),
	mustRule(`\bbasketball\b`, "Basketball"),
	mustRule(`\bfootball\b`, "Football"),
	mustRule(`\bhockey\b`, "Hockey"),
	mustRule(`\bequestrian\b`, "Equestrian"),
	mustRule(`\bsquash\b`, "Squash"),
	mustRule(`\bchess\b`, "Chess"),
	mustRule(`\bvolleyball\b`, "Volleyball"),
	mustRule(`\bswimming\b`, "Swimming"),
	mustRule(`\bgolf\b`, "Golf"),
	mustRule(`\btable\s*tennis\b`, "Table Tennis"),
	mustRule(`\bgymnastics\b`, "Gymnastics"),
	mustRule(`\b(martial\s*arts|karate)\b`, "Martial Arts"),
	mustRule(`\bshooting\b`, "Shooting"),
	mustRule(`\bskating\b`, "Skating"),
	mustRule(`\bboxing\b`, "Boxing"),

	// 技术类
	mustRule(`\bartificial\s*intelligence\b`, "Artificial Intelligence"),
	mustRule(`\bweb\s*development\b`, "Web Development"),
	mustRule(`\bdatabase\b`, "Database Management"),
	mustRule(`\bnetwork\b`, "Network Administration"),
	mustRule(`\bsystem\s*admin\b`, "System Administration"),
	mustRule(`\bit\s*support\b`, "IT Support"),
	mustRule(`\beducational\s*technology\b`, "Educational Technology Integration"),
	mustRule(`\blms\b`, "Learning Management Systems"),
	mustRule(`\bdigital\s*content\b`, "Digital Content Creation"),
	mustRule(`\bdata\s*analysis\b`, "Data Analysis"),
	mustRule(`\bdata\s*science\b`, "Data Science"),
	mustRule(`\bcybersecurity\b`, "Cybersecurity"),
	mustRule(`\bvideo\s*editing\b`, "Video Editing"),
	mustRule(`\bgraphic\s*design\b`, "Graphic Design"),
	mustRule(`\bms\s*office\b`, "MS Office Suite"),

	// 行政类
	mustRule(`\bschool\s*admin\b`, "School Administration"),
	mustRule(`\boffice\s*manage\b`, "Office Management"),
	mustRule(`\bevent\s*manage\b`, "Event Management"),
	mustRule(`\bfacilities\b`, "Facilities Management"),
	mustRule(`\binventory\b`, "Inventory Management"),
	mustRule(`\bfront\s*office\b`, "Front Office Management"),
	mustRule(`\bcommunication\b`, "Communication Management"),
	mustRule(`\bfinance\b`, "Finance"),
	mustRule(`\baccounts?\s*manage\b`, "Accounts Management"),
	mustRule(`\bhuman\s*resources\b`, "Human Resources"),
	mustRule(`\bmarketing\b`, "Marketing"),
	mustRule(`\boperations\b`, "Operations Management"),
	mustRule(`\btransport\b`, "Transport Operations Management"),
	mustRule(`\bhostel\b`, "Hostel Management"),
	mustRule(`\bcanteen\b`, "Canteen Management"),
	mustRule(`\bsecurity\b`, "Security Management"),
	mustRule(`\bhousekeeping\b`, "Housekeeping Management"),
	mustRule(`\bmaintenance\b`, "Maintenance Management"),
	mustRule(`\blaboratory\s*manage\b`, "Laboratory Management"),
}

// domainFixes 常见邮箱域名拼写错误修正表
var domainFixes = map[string]string{
	"gmial.com":    "gmail.com",
	"gmal.com":     "gmail.com",
	"gmail.co":     "gmail.com",
	"gmail.comm":   "gmail.com",
	"yahho.com":    "yahoo.com",
	"yaho.com":     "yahoo.com",
	"yahoo.comm":   "yahoo.com",
	"hotmial.com":  "hotmail.com",
	"hotnail.com":  "hotmail.com",
	"hotmail.comm": "hotmail.com",
	"outlok.com":   "outlook.com",
	"outloo.com":   "outlook.com",
	"outlook.comm": "outlook.com",
}
