package service

import (
	"math/rand"
	"sort"
	"strings"

	"sutra/backend/internal/model"
)

// ── 课表填充器 ──────────────────────────────────────────────
//
// 固定模式填充，不做冲突检测与回溯：
//   1. 取前 5 门理论课、前 5 门实验课、前 10 名教师、前 10 个教室，缺失时使用默认列表
//   2. 理论课每门连续两次，实验课每门一次
//   3. 按种子做 Fisher–Yates 洗牌
//   4. 单次前向扫描，尽量避免相邻重复（不保证全局无相邻重复）
//   5. 按 周一~周六 × 固定时段 顺序填入，多余课时直接丢弃
//   6. 固定坐标覆盖为 Library / Project
//   7. 追加周日休息行并按固定顺序排序
// ─────────────────────────────────────────────────────────────

const (
	maxTheorySubjects = 5
	maxLabSubjects    = 5
	maxFaculty        = 10
	maxVenues         = 10
	saturdaySlots     = 3

	allBatches   = "All Batches"
	fallbackLab  = "Lab-1"
	fallbackRoom = "Room-101"
)

var (
	defaultTheory  = []string{"Computer Science", "Mathematics", "Physics", "Chemistry", "English"}
	defaultLab     = []string{"Programming Lab", "Data Structures Lab", "Network Lab"}
	defaultFaculty = []string{"Dr. Smith", "Prof. Johnson", "Dr. Williams", "Prof. Brown", "Dr. Davis"}
	defaultVenues  = []string{"Room-101", "Room-102", "Room-103", "Lab-A", "Lab-B"}

	// gridDays 参与排课的日期，周日单独追加
	gridDays  = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	timeSlots = []string{"9:00-10:00", "10:00-11:00", "11:00-12:00", "2:00-3:00", "3:00-4:00", "4:00-5:00"}

	dayOrder  = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	timeOrder = []string{"9:00-10:00", "10:00-11:00", "11:00-12:00", "2:00-3:00", "3:00-4:00", "4:00-5:00", "-"}

	holidayRow = model.TimetableEntry{"Sunday", "-", "-", "HOLIDAY", "-", "-"}
)

// mandatorySlot 固定覆盖的课时
type mandatorySlot struct {
	day, time, course, faculty, venue string
}

var mandatorySlots = []mandatorySlot{
	{"Tuesday", "2:00-3:00", "LIBRARY SESSION", "Library Staff", "Library"},
	{"Thursday", "4:00-5:00", "LIBRARY SESSION", "Library Staff", "Library"},
	{"Wednesday", "3:00-4:00", "PROJECT WORK", "Project Guide", "Project Lab"},
	{"Friday", "2:00-3:00", "PROJECT WORK", "Project Guide", "Project Lab"},
}

// GenerateTimetable 根据输入数据与洗牌种子生成课表
func GenerateTimetable(bundle model.DataBundle, seed int64) model.Table {
	theory := orDefault(columnValues(bundle.TheoryCourses, maxTheorySubjects, "Course name", "Course"), defaultTheory)
	labs := orDefault(columnValues(bundle.LabCourses, maxLabSubjects, "Course name", "Course"), defaultLab)
	faculty := orDefault(columnValues(bundle.Faculty, maxFaculty, "Name", "name"), defaultFaculty)
	venues := orDefault(columnValues(bundle.Venues, maxVenues, "Room Number", "room"), defaultVenues)

	sessions := BuildSessions(theory, labs)
	ShuffleSessions(sessions, rand.New(rand.NewSource(seed)))
	SpreadAdjacentDuplicates(sessions)

	labVenues, roomVenues := splitVenues(venues)
	batch := bundle.Branch + " Div" + bundle.Division

	entries := make([]model.TimetableEntry, 0, len(gridDays)*len(timeSlots)+len(mandatorySlots)+1)
	idx := 0
	for _, day := range gridDays {
		slots := len(timeSlots)
		if day == "Saturday" {
			slots = saturdaySlots
		}
		for s := 0; s < slots && idx < len(sessions); s++ {
			session := sessions[idx]
			entries = append(entries, model.TimetableEntry{
				day,
				timeSlots[s],
				batch,
				session.Subject,
				faculty[idx%len(faculty)],
				pickVenue(session.Type, idx, labVenues, roomVenues),
			})
			idx++
		}
	}

	entries = applyMandatorySlots(entries)
	entries = append(entries, holidayRow)
	sortEntries(entries)

	return model.Table{
		Headers: append([]string(nil), model.TableHeaders...),
		Rows:    entries,
	}
}

// BuildSessions 理论课每门连续两次，随后实验课每门一次
func BuildSessions(theory, labs []string) []model.Session {
	sessions := make([]model.Session, 0, len(theory)*2+len(labs))
	for _, s := range theory {
		sessions = append(sessions,
			model.Session{Subject: s, Type: model.SessionTheory},
			model.Session{Subject: s, Type: model.SessionTheory},
		)
	}
	for _, s := range labs {
		sessions = append(sessions, model.Session{Subject: s, Type: model.SessionLab})
	}
	return sessions
}

// ShuffleSessions Fisher–Yates 洗牌
func ShuffleSessions(sessions []model.Session, rng *rand.Rand) {
	for i := len(sessions) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
}

// SpreadAdjacentDuplicates 单次前向扫描：与下一项同名时，
// 把后面第一个不同科目换到 i+1。后续交换可能重新引入相邻重复。
func SpreadAdjacentDuplicates(sessions []model.Session) {
	for i := 0; i < len(sessions)-1; i++ {
		if sessions[i].Subject != sessions[i+1].Subject {
			continue
		}
		for j := i + 2; j < len(sessions); j++ {
			if sessions[j].Subject != sessions[i].Subject {
				sessions[i+1], sessions[j] = sessions[j], sessions[i+1]
				break
			}
		}
	}
}

func columnValues(rows []model.Row, limit int, keys ...string) []string {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	values := make([]string, 0, len(rows))
	for _, r := range rows {
		if v := r.First(keys...); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func orDefault(values, fallback []string) []string {
	if len(values) > 0 {
		return values
	}
	return append([]string(nil), fallback...)
}

func splitVenues(venues []string) (labs, rooms []string) {
	for _, v := range venues {
		lower := strings.ToLower(v)
		if strings.Contains(lower, "lab") {
			labs = append(labs, v)
		}
		if strings.Contains(lower, "room") || !strings.Contains(lower, "lab") {
			rooms = append(rooms, v)
		}
	}
	return labs, rooms
}

func pickVenue(t model.SessionType, idx int, labs, rooms []string) string {
	if t == model.SessionLab {
		if len(labs) == 0 {
			return fallbackLab
		}
		return labs[idx%len(labs)]
	}
	if len(rooms) == 0 {
		return fallbackRoom
	}
	return rooms[idx%len(rooms)]
}

// applyMandatorySlots 覆盖已排课时；该坐标未排课时追加
func applyMandatorySlots(entries []model.TimetableEntry) []model.TimetableEntry {
	for _, m := range mandatorySlots {
		entry := model.TimetableEntry{m.day, m.time, allBatches, m.course, m.faculty, m.venue}
		replaced := false
		for i := range entries {
			if entries[i].Day() == m.day && entries[i].Time() == m.time {
				entries[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, entry)
		}
	}
	return entries
}

func orderIndex(order []string, v string) int {
	for i, o := range order {
		if o == v {
			return i
		}
	}
	return -1
}

func sortEntries(entries []model.TimetableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := orderIndex(dayOrder, entries[i].Day()), orderIndex(dayOrder, entries[j].Day())
		if di != dj {
			return di < dj
		}
		return orderIndex(timeOrder, entries[i].Time()) < orderIndex(timeOrder, entries[j].Time())
	})
}
