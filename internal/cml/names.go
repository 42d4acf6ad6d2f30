package cml

import "fmt"

// Default document version. The namespace URI embeds the major/minor pair.
const (
	DefaultMajorVersion  = 2
	DefaultMinorVersion  = 1
	DefaultSchemaVersion = "2.05"
	DefaultEncoding      = "windows-1251"
)

// Namespace returns the CommerceML namespace URI for a document version
func Namespace(major, minor int) string {
	return fmt.Sprintf("urn:1C.ru:commerceml_%d_%d", major, minor)
}

// DefaultNamespace is the namespace of the default document version
var DefaultNamespace = Namespace(DefaultMajorVersion, DefaultMinorVersion)

// Element and attribute names of the document dialect
const (
	tagCommercialInformation = "КоммерческаяИнформация"
	attrSchemaVersion        = "ВерсияСхемы"
	attrGenerationDate       = "ДатаФормирования"

	tagClassifier = "Классификатор"
	tagCatalog    = "Каталог"
	tagOffersPack = "ПакетПредложений"
	tagDocument   = "Документ"

	tagID        = "Ид"
	tagTitle     = "Наименование"
	tagTitleFull = "НаименованиеПолное"
	tagFullName  = "ПолноеНаименование"
	tagValue     = "Значение"
	tagValueID   = "ИдЗначения"
	tagCode      = "Код"

	tagGroups = "Группы"
	tagGroup  = "Группа"

	tagProperties  = "Свойства"
	tagProperty    = "Свойство"
	tagValueType   = "ТипЗначений"
	tagForProducts = "ДляТоваров"
	tagVariants    = "ВариантыЗначений"

	tagUnits              = "ЕдиницыИзмерения"
	tagUnit               = "ЕдиницаИзмерения"
	tagInternationalShort = "МеждународноеСокращение"

	tagProducts        = "Товары"
	tagProduct         = "Товар"
	tagItemNumber      = "Артикул"
	tagBasicUnit       = "БазоваяЕдиница"
	tagImage           = "Картинка"
	tagPropertyValues  = "ЗначенияСвойств"
	tagPropertyValue   = "ЗначенияСвойства"
	tagTaxRates        = "СтавкиНалогов"
	tagTaxRate         = "СтавкаНалога"
	tagRate            = "Ставка"
	tagRequisiteValues = "ЗначенияРеквизитов"
	tagRequisiteValue  = "ЗначениеРеквизита"

	tagPriceTypes     = "ТипыЦен"
	tagPriceType      = "ТипЦены"
	tagCurrency       = "Валюта"
	tagTax            = "Налог"
	tagTaxInSum       = "УчтеноВСумме"
	tagOffers         = "Предложения"
	tagOffer          = "Предложение"
	tagPrices         = "Цены"
	tagPrice          = "Цена"
	tagRepresentation = "Представление"
	tagPriceTypeID    = "ИдТипаЦены"
	tagPricePerUnit   = "ЦенаЗаЕдиницу"
	tagUnitName       = "Единица"
	tagRatio          = "Коэффициент"
	tagQuantity       = "Количество"

	tagNumber         = "Номер"
	tagDate           = "Дата"
	tagTime           = "Время"
	tagOperation      = "ХозОперация"
	tagRole           = "Роль"
	tagExchangeRate   = "Курс"
	tagAmount         = "Сумма"
	tagComment        = "Комментарий"
	tagCounterparties = "Контрагенты"
	tagCounterparty   = "Контрагент"
	tagLastName       = "Фамилия"
	tagFirstName      = "Имя"
	tagAddress        = "АдресРегистрации"

	valueTrue = "true"
)
