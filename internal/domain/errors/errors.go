package errors

import "errors"

var (
	ErrValidationFailed   = errors.New("ошибка валидации")
	ErrBatchEmpty         = errors.New("список задач пуст")
	ErrBatchTooLarge      = errors.New("превышен максимальный размер пакета")
	ErrInvalidTaskID      = errors.New("некорректный идентификатор задачи")
	ErrEmptyUpdate        = errors.New("не указаны поля для обновления")
	ErrUnscopedQuery      = errors.New("запрос без владельца запрещён")
	ErrInvalidDueDate     = errors.New("некорректная дата выполнения")
	ErrInvalidPriority    = errors.New("недопустимый приоритет задачи")
	ErrInvalidTitle       = errors.New("некорректный заголовок задачи")
	ErrInvalidDescription = errors.New("некорректное описание задачи")
	ErrInvalidCategory    = errors.New("категория не существует")
	ErrInvalidName        = errors.New("некорректное название категории")
	ErrInvalidColor       = errors.New("некорректный цвет категории")
	ErrInvalidUsername    = errors.New("некорректное имя пользователя")
	ErrInvalidEmail       = errors.New("некорректный email")
	ErrInvalidPassword    = errors.New("некорректный пароль")
	ErrBadRequest         = errors.New("неверный запрос")

	ErrUnauthorized       = errors.New("нет доступа")
	ErrInvalidCredentials = errors.New("неверные учетные данные")

	ErrNotFound         = errors.New("ресурс не найден")
	ErrTaskNotFound     = errors.New("задача не найдена")
	ErrCategoryNotFound = errors.New("категория не найдена")
	ErrUserNotFound     = errors.New("пользователь не найден")

	ErrForbidden = errors.New("доступ запрещён")

	ErrConflict          = errors.New("конфликт ресурса")
	ErrUserAlreadyExists = errors.New("пользователь уже существует")
	ErrCategoryExists    = errors.New("категория с таким названием уже существует")

	ErrStorage        = errors.New("ошибка хранилища")
	ErrInternalServer = errors.New("внутренняя ошибка сервера")

	ErrConfigFileReadFailed  = errors.New("не удалось прочитать файл конфигурации")
	ErrConfigParseFailed     = errors.New("не удалось разобрать файл конфигурации")
	ErrConfigInvalidFormat   = errors.New("некорректный формат значения")
	ErrConfigMissingSecret   = errors.New("не задан секрет для подписи токенов")
	ErrUnknownStorage        = errors.New("неизвестный тип хранилища")
	ErrInvalidGzipRequest    = errors.New("некорректное gzip-тело запроса")
	ErrGzipCompressionFailed = errors.New("ошибка gzip-сжатия ответа")
)

// Kind is the closed set of failure classes an operation can report.
type Kind int

const (
	KindOK Kind = iota
	KindValidation
	KindUnauthenticated
	KindNotFound
	KindForbidden
	KindConflict
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "storage"
	}
}

var kinds = []struct {
	kind    Kind
	members []error
}{
	{KindValidation, []error{
		ErrValidationFailed, ErrBatchEmpty, ErrBatchTooLarge, ErrInvalidTaskID, ErrEmptyUpdate,
		ErrUnscopedQuery, ErrInvalidDueDate, ErrInvalidPriority, ErrInvalidTitle, ErrInvalidDescription,
		ErrInvalidCategory, ErrInvalidName, ErrInvalidColor, ErrInvalidUsername, ErrInvalidEmail,
		ErrInvalidPassword, ErrBadRequest,
	}},
	{KindUnauthenticated, []error{ErrUnauthorized, ErrInvalidCredentials}},
	{KindNotFound, []error{ErrNotFound, ErrTaskNotFound, ErrCategoryNotFound, ErrUserNotFound}},
	{KindForbidden, []error{ErrForbidden}},
	{KindConflict, []error{ErrConflict, ErrUserAlreadyExists, ErrCategoryExists}},
}

// KindOf classifies err. Anything outside the taxonomy is a storage failure.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	for _, k := range kinds {
		for _, member := range k.members {
			if errors.Is(err, member) {
				return k.kind
			}
		}
	}
	return KindStorage
}

// Storage wraps an unexpected persistence failure. Taxonomy errors pass through untouched.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindStorage || errors.Is(err, ErrStorage) {
		return err
	}
	return &storageError{err: err}
}

type storageError struct {
	err error
}

func (e *storageError) Error() string { return ErrStorage.Error() + ": " + e.err.Error() }

func (e *storageError) Unwrap() []error { return []error{ErrStorage, e.err} }

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
