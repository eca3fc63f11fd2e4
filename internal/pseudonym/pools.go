package pseudonym

// prefixPool replaces two-character member-id prefixes, in sorted-prefix order.
var prefixPool = []string{"ZA", "ZB", "ZC", "ZD", "ZE", "ZF", "ZG", "ZH", "ZJ", "ZK"}

const fallbackPrefix = "X"

// OnlineStoreName is the single pseudonym shared by every online storefront.
const OnlineStoreName = "オンラインストア"

var physicalStorePool = []string{
	"Store Alpha", "Store Bravo", "Store Charlie", "Store Delta",
	"Store Echo", "Store Foxtrot", "Store Golf", "Store Hotel",
	"Store India", "Store Juliet", "Store Kilo", "Store Lima",
	"Store Mike", "Store November", "Store Oscar", "Store Papa",
}

// onlineKeywords are matched case-insensitively against width-folded store names.
var onlineKeywords = []string{
	"online", "web", "e-commerce", "ecommerce", "ec店", "ecサイト", "公式サイト",
	"オンライン", "通販", "ネットストア", "ネットショップ", "ウェブ",
}

var familyNamePool = []string{
	"佐藤", "鈴木", "高橋", "田中", "伊藤", "渡辺", "山本", "中村", "小林", "加藤",
	"吉田", "山田", "佐々木", "山口", "松本", "井上", "木村", "林", "斎藤", "清水",
	"山崎", "森", "池田", "橋本", "阿部", "石川", "山下", "中島", "石井", "小川",
	"前田", "岡田", "長谷川", "藤田", "後藤", "近藤", "村上", "遠藤", "青木", "坂本",
	"斉藤", "福田", "太田", "西村", "藤井", "金子", "岡本", "藤原", "中野", "三浦",
}

var givenNamePool = []string{
	"陽菜", "結衣", "葵", "凛", "さくら", "美咲", "花子", "優奈", "愛", "彩",
	"翔", "大翔", "蓮", "悠真", "湊", "陽向", "太郎", "健太", "拓海", "颯",
	"美月", "七海", "真央", "杏", "楓", "琴音", "彩花", "結菜", "芽依", "心春",
	"大輝", "海斗", "陸", "樹", "悠人", "颯太", "直樹", "和也", "亮", "誠",
	"舞", "遥", "玲奈", "千尋", "菜々子", "光", "奏", "瑞希", "実", "恵",
}
